// Package password hashes credentials with argon2id in PHC string format
// and enforces the password-strength policy applied at registration and
// password change.
package password
