// Package codec marshals UTF-8 text across the linear memory boundary.
//
// Decoding is strict: malformed bytes are an error, never replaced.
// Encoding has two paths. Encode allocates exactly once at the encoded
// byte length. EncodeInto takes a reallocator and writes the ASCII
// prefix byte by byte before ever invoking a bulk encode, growing the
// buffer only when non-ASCII text appears; the common all-ASCII case
// finishes in the prefix loop alone.
package codec
