//go:build !linux

package keys

import "context"

// KernelKeyring is only backed by the kernel on linux.
type KernelKeyring struct{}

func NewKernelKeyring(string) *KernelKeyring { return &KernelKeyring{} }

func (k *KernelKeyring) Name() string { return "keyring" }

func (k *KernelKeyring) Probe() error { return unavailable(ReasonNoSensor) }

func (k *KernelKeyring) Load(context.Context) ([]byte, error) {
	return nil, unavailable(ReasonNoSensor)
}

func (k *KernelKeyring) Save(context.Context, []byte) error {
	return unavailable(ReasonNoSensor)
}

func (k *KernelKeyring) Delete(context.Context) error {
	return unavailable(ReasonNoSensor)
}
