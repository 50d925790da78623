// Package password implements Argon2id password hashing, verification and
// plaintext acceptance policies.
//
// # Output format
//
// Hashes are encoded in PHC string format:
//
//	$argon2id$v=19$m=<memory>,t=<time>,p=<threads>$<salt>$<hash>
//
// [Argon2.NeedsUpgrade] reports hashes produced with weaker parameters so the
// caller can re-hash after the next successful login.
//
// # Timing
//
// [Argon2.VerifyDummy] performs a full verification against a throwaway hash.
// Callers use it when the account lookup misses so both failure paths do the
// same amount of work.
//
// # What this package must NOT do
//
//   - Store or retrieve passwords.
//   - Import any other authgate package.
//   - Log plaintext passwords.
package password
