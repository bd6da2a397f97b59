package signature_test

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/argonprotocol/argon/foundation/blockchain/signature"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

var seed = bytes.Repeat([]byte{7}, 32)

// =============================================================================

func Test_Signing(t *testing.T) {
	schemes := []signature.Scheme{signature.Sr25519, signature.Ed25519, signature.Ecdsa}
	msg := []byte("notarization")

	t.Log("Given the need to sign and verify messages with every scheme.")
	{
		for testID, scheme := range schemes {
			t.Logf("\tTest %d:\tWhen handling a %s key pair.", testID, scheme)
			{
				f := func(t *testing.T) {
					kp, err := signature.KeyPairFromSeed(scheme, seed)
					if err != nil {
						t.Fatalf("\t%s\tTest %d:\tShould be able to derive a key pair: %v", failed, testID, err)
					}
					t.Logf("\t%s\tTest %d:\tShould be able to derive a key pair.", success, testID)

					sig, err := kp.Sign(msg)
					if err != nil {
						t.Fatalf("\t%s\tTest %d:\tShould be able to sign data: %v", failed, testID, err)
					}
					t.Logf("\t%s\tTest %d:\tShould be able to sign data.", success, testID)

					if !sig.Verify(kp.AccountID(), msg) {
						t.Fatalf("\t%s\tTest %d:\tShould be able to verify the signature.", failed, testID)
					}
					t.Logf("\t%s\tTest %d:\tShould be able to verify the signature.", success, testID)

					if sig.Verify(kp.AccountID(), []byte("notarization!")) {
						t.Fatalf("\t%s\tTest %d:\tShould reject a signature over different data.", failed, testID)
					}
					t.Logf("\t%s\tTest %d:\tShould reject a signature over different data.", success, testID)

					other, err := signature.KeyPairFromSeed(scheme, bytes.Repeat([]byte{9}, 32))
					if err != nil {
						t.Fatalf("\t%s\tTest %d:\tShould be able to derive a second key pair: %v", failed, testID, err)
					}

					if sig.Verify(other.AccountID(), msg) {
						t.Fatalf("\t%s\tTest %d:\tShould reject a signature for a different account.", failed, testID)
					}
					t.Logf("\t%s\tTest %d:\tShould reject a signature for a different account.", success, testID)
				}

				t.Run(scheme.String(), f)
			}
		}
	}
}

func Test_SchemeMismatch(t *testing.T) {
	kp, err := signature.KeyPairFromSeed(signature.Ed25519, seed)
	if err != nil {
		t.Fatalf("Should be able to derive a key pair: %s", err)
	}

	sig, err := kp.Sign([]byte("vote"))
	if err != nil {
		t.Fatalf("Should be able to sign data: %s", err)
	}

	sig.Scheme = signature.Sr25519
	if sig.Verify(kp.AccountID(), []byte("vote")) {
		t.Fatalf("Should not verify an ed25519 signature as sr25519.")
	}
}

func Test_Hash(t *testing.T) {
	value := struct {
		Name    string
		Balance uint64
	}{
		Name:    "Bill",
		Balance: 100,
	}

	h1 := signature.Hash(value)
	if h1.IsZero() {
		t.Fatalf("Should get back a non zero hash.")
	}

	h2 := signature.Hash(value)
	if h1 != h2 {
		t.Logf("got: %s", h2)
		t.Logf("exp: %s", h1)
		t.Fatalf("Should get back the same hash twice.")
	}

	value.Balance = 101
	if signature.Hash(value) == h1 {
		t.Fatalf("Should get back a different hash for different data.")
	}
}

func Test_DigestText(t *testing.T) {
	d := signature.HashBytes([]byte("a"), []byte("b"))

	text, err := d.MarshalText()
	if err != nil {
		t.Fatalf("Should be able to marshal the digest: %s", err)
	}

	var back signature.Digest
	if err := back.UnmarshalText(text); err != nil {
		t.Fatalf("Should be able to unmarshal the digest: %s", err)
	}

	if back != d {
		t.Logf("got: %s", back)
		t.Logf("exp: %s", d)
		t.Fatalf("Should get back the same digest.")
	}
}

func Test_KeyFiles(t *testing.T) {
	dir := t.TempDir()

	for _, scheme := range []signature.Scheme{signature.Sr25519, signature.Ed25519, signature.Ecdsa} {
		kp, err := signature.KeyPairFromSeed(scheme, seed)
		if err != nil {
			t.Fatalf("Should be able to derive a key pair: %s", err)
		}

		path := filepath.Join(dir, "alice."+scheme.String())
		if err := signature.SaveKeyPair(path, kp); err != nil {
			t.Fatalf("Should be able to save a %s key: %s", scheme, err)
		}

		loaded, err := signature.LoadKeyPair(path)
		if err != nil {
			t.Fatalf("Should be able to load a %s key: %s", scheme, err)
		}

		if loaded.AccountID() != kp.AccountID() {
			t.Fatalf("Should load the same %s account.", scheme)
		}
	}
}
