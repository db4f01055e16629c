// Package auth stores the MyAnimeList API client id.
//
// Credentials are kept per profile. The Manager tries, in order, the system
// keyring, an AES-GCM encrypted file whose key is derived with PBKDF2, and
// the MALHARVEST_CLIENT_ID environment variable (read-only).
package auth
