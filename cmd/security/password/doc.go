// Package password hashes and verifies LMS account passwords.
//
// New hashes are always Argon2id in PHC form:
//
//	$argon2id$v=19$m=<mem>,t=<iter>,p=<par>$<salt_b64>$<hash_b64>
//
// Verify also accepts bcrypt hashes ($2a$, $2b$, $2y$) written by the previous
// generation of the LMS backend and reports them through NeedsRehash so callers
// can upgrade them after a successful login.
//
// Hash strings are treated as untrusted input: Argon2id parameters far above the
// configured cost are refused instead of evaluated.
package password
