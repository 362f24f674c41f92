// Package cli implements the encrypter command-line tool.
//
// Every command except version opens the vault described by the
// configuration, runs one operation and closes it again. Credentials are
// read from the controlling terminal.
package cli
