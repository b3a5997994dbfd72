// Package credential registers accounts and checks email/password pairs.
//
// Passwords are hashed with bcrypt and never leave this package; callers only
// ever see the public user.Identity projection.
package credential
