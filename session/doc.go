// Package session resolves the parameters of one server session from the
// initialize request: the workspace roots that scope analysis and the
// session configuration carried in initializationOptions.
//
// Root precedence:
//
//  1. workspaceFolders, when at least one is a file URI, in the order given
//  2. rootUri (file scheme), else the deprecated rootPath
//  3. the process working directory
//
// Configuration that is missing or fails to decode is never fatal: the
// default is used and the user is told through window/showMessage. An empty
// object selects the defaults without a notification.
package session
