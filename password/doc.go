// Package password provides argon2id hashing for the credential
// verifier. Hashes are stored as PHC-format strings so parameters can
// be tuned without invalidating existing credentials.
package password
