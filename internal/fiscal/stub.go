package fiscal

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"
	"time"
)

// StubDevice is an in-process Device used when the seal bypass flag is
// enabled (development machines without a card reader) and by tests. The
// seals it produces carry a STUB- serial and have no fiscal validity; the
// counter still increases monotonically so sequence-dependent behavior
// can be exercised.
type StubDevice struct {
	mu      sync.Mutex
	counter uint32
	serial  string
}

// NewStubDevice returns a stub with its counter at zero.
func NewStubDevice() *StubDevice {
	return &StubDevice{serial: "STUB-00000001"}
}

// RequestSeal implements Device. The MAC is derived deterministically
// from (serial, counter, price) so repeated runs produce identical seals
// for identical sequences.
func (d *StubDevice) RequestSeal(_ context.Context, priceCents uint32) (SealRecord, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.counter++
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s|%d|%d", d.serial, d.counter, priceCents)))
	mac := hex.EncodeToString(sum[:8])
	return SealRecord{
		Counter:      d.counter,
		SealCode:     strings.ToUpper(hex.EncodeToString(sum[8:14])),
		SerialNumber: d.serial,
		MAC:          mac,
		Timestamp:    time.Now().UTC().Truncate(time.Second),
	}, nil
}

// IsDeviceConnected implements Device; the stub is always connected.
func (d *StubDevice) IsDeviceConnected(context.Context) bool { return true }

// IsCardReady implements Device; the stub card is always ready.
func (d *StubDevice) IsCardReady(context.Context) (bool, string) { return true, "" }

// Counter returns the number of seals issued so far.
func (d *StubDevice) Counter() uint32 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.counter
}
