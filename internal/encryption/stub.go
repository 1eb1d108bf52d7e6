package encryption

import (
	"bytes"
	"fmt"
	"io"

	"sari-go/internal/inventory"
)

// stubHeader marks output of StubEncryptor.
var stubHeader = []byte("SARISNAP")

// StubEncryptor is a deterministic, reversible stand-in for AgeEncryptor.
// It prepends stubHeader when encrypting and strips it when decrypting, so
// backup plumbing can be exercised without keys or passphrases.
type StubEncryptor struct {
	setupCalled bool
}

var _ inventory.Encryptor = (*StubEncryptor)(nil)

func NewStubEncryptor() *StubEncryptor {
	return &StubEncryptor{}
}

func (e *StubEncryptor) Setup(passphrase string) error {
	e.setupCalled = true
	return nil
}

func (e *StubEncryptor) Encrypt(r io.Reader, w io.Writer) error {
	if _, err := w.Write(stubHeader); err != nil {
		return fmt.Errorf("writing stub header: %w", err)
	}
	if _, err := io.Copy(w, r); err != nil {
		return fmt.Errorf("copying data: %w", err)
	}
	return nil
}

func (e *StubEncryptor) Unlock(passphrase string) (inventory.DecryptionContext, error) {
	return stubDecryptor{}, nil
}

func (e *StubEncryptor) IsConfigured() bool {
	return true
}

type stubDecryptor struct{}

func (stubDecryptor) Decrypt(r io.Reader, w io.Writer) error {
	header := make([]byte, len(stubHeader))
	if _, err := io.ReadFull(r, header); err != nil {
		return fmt.Errorf("reading stub header: %w", err)
	}
	if !bytes.Equal(header, stubHeader) {
		return fmt.Errorf("not a stub-encrypted snapshot")
	}
	if _, err := io.Copy(w, r); err != nil {
		return fmt.Errorf("copying data: %w", err)
	}
	return nil
}
