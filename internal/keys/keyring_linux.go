//go:build linux

package keys

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sys/unix"
)

const keyringKeyType = "user"

// KernelKeyring keeps the wrapped key in the calling user's kernel keyring.
// The keyring lives as long as the user has a session, so the key does not
// survive a full logout.
type KernelKeyring struct {
	description string
}

func NewKernelKeyring(name string) *KernelKeyring {
	return &KernelKeyring{description: "encrypter:" + name}
}

func (k *KernelKeyring) Name() string { return "keyring" }

func (k *KernelKeyring) Probe() error {
	if _, err := unix.KeyctlGetKeyringID(unix.KEY_SPEC_USER_KEYRING, true); err != nil {
		return unavailable(ReasonNoSensor)
	}
	return nil
}

func (k *KernelKeyring) find() (int, error) {
	id, err := unix.KeyctlSearch(unix.KEY_SPEC_USER_KEYRING, keyringKeyType, k.description, 0)
	if errors.Is(err, unix.ENOKEY) {
		return 0, ErrKeyNotFound
	}
	if err != nil {
		return 0, storeErr("search keyring", err)
	}
	return id, nil
}

func (k *KernelKeyring) Load(_ context.Context) ([]byte, error) {
	id, err := k.find()
	if err != nil {
		return nil, err
	}

	size, err := unix.KeyctlBuffer(unix.KEYCTL_READ, id, nil, 0)
	if err != nil {
		return nil, storeErr("read keyring", err)
	}

	buf := make([]byte, size)
	n, err := unix.KeyctlBuffer(unix.KEYCTL_READ, id, buf, 0)
	if err != nil {
		return nil, storeErr("read keyring", err)
	}
	if n > size {
		return nil, storeErr("read keyring", fmt.Errorf("key grew from %d to %d bytes", size, n))
	}
	return buf[:n], nil
}

func (k *KernelKeyring) Save(_ context.Context, wrapped []byte) error {
	if _, err := unix.AddKey(keyringKeyType, k.description, wrapped, unix.KEY_SPEC_USER_KEYRING); err != nil {
		return storeErr("add key", err)
	}
	return nil
}

func (k *KernelKeyring) Delete(_ context.Context) error {
	id, err := k.find()
	if errors.Is(err, ErrKeyNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	if _, err := unix.KeyctlInt(unix.KEYCTL_UNLINK, id, unix.KEY_SPEC_USER_KEYRING, 0, 0); err != nil {
		return storeErr("unlink key", err)
	}
	return nil
}
