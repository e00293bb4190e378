package pkg

import (
	"crypto/rand"
	"errors"
	"fmt"
	"os"
	"unsafe"
)

const randomStringCharset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// BytesToString converts bytes slice to a string without extra allocation
func BytesToString(buf []byte) string {
	return *(*string)(unsafe.Pointer(&buf))
}

// GenerateRandomBytes returns securely generated random bytes.
// It will return an error if the system's secure random
// number generator fails to function correctly, in which
// case the caller should not continue
func GenerateRandomBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	_, err := rand.Read(b)
	// Note that err == nil only if we read len(b) bytes.
	if err != nil {
		return nil, err
	}

	return b, nil
}

// GenerateRandomString returns a securely generated random alphanumeric
// string of exactly the given length.
func GenerateRandomString(length int) (string, error) {
	if length <= 0 {
		return "", errors.New("random string length must be positive")
	}
	b, err := GenerateRandomBytes(length)
	if err != nil {
		return "", err
	}
	for i, v := range b {
		b[i] = randomStringCharset[int(v)%len(randomStringCharset)]
	}
	return string(b), nil
}

// PathExists returns whether the given file or directory exists.
// An existing path of the wrong kind is an error, not a miss.
func PathExists(path string, isDir bool) (bool, error) {
	stat, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	if isDir != stat.IsDir() {
		if isDir {
			return false, fmt.Errorf("path %s is not a directory", path)
		}
		return false, fmt.Errorf("path %s is not a regular file, but a directory", path)
	}
	return true, nil
}
