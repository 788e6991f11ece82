//go:build !linux && !darwin

package secrets

func lockMemory([]byte) error   { return nil }
func unlockMemory([]byte) error { return nil }
