// Package account implements the login and password-change flows.
//
// Login authenticates against identity.Store, applies the overdue-fee gate for
// students, resolves the role's menus, mints a token and installs it as the
// account's only session. When that replaces an earlier session, every live
// realtime connection of the account is sent a forceLogout event.
package account
