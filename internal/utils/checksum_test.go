package utils

import "testing"

func TestSignVerifyRoundTrip(t *testing.T) {
	payload := []byte(`{"orderReference":"BOOKING-1","status":"SUCCESS"}`)
	secret := "test-secret"

	signature := Sign(payload, secret)
	if signature == "" {
		t.Fatal("expected non-empty signature")
	}
	if !Verify(payload, signature, secret) {
		t.Error("expected signature to verify")
	}
}

func TestVerifyRejectsMutations(t *testing.T) {
	payload := []byte(`{"orderReference":"BOOKING-1","status":"SUCCESS"}`)
	secret := "test-secret"
	signature := Sign(payload, secret)

	// Flip one payload byte
	mutated := append([]byte(nil), payload...)
	mutated[10] ^= 0x01
	if Verify(mutated, signature, secret) {
		t.Error("mutated payload must not verify")
	}

	// Flip one signature character
	badSig := []byte(signature)
	if badSig[0] == 'a' {
		badSig[0] = 'b'
	} else {
		badSig[0] = 'a'
	}
	if Verify(payload, string(badSig), secret) {
		t.Error("mutated signature must not verify")
	}

	if Verify(payload, signature, "wrong-secret") {
		t.Error("wrong secret must not verify")
	}
}

func TestVerifyMissingInputs(t *testing.T) {
	payload := []byte(`{}`)
	if Verify(payload, "abc", "") {
		t.Error("missing secret must not verify")
	}
	if Verify(payload, "", "secret") {
		t.Error("missing signature must not verify")
	}
	if Verify(payload, "not-hex-at-all", "secret") {
		t.Error("malformed signature must not verify")
	}
}

func TestPayloadChecksumDeterministic(t *testing.T) {
	fields := map[string]any{
		"orderReference": "BOOKING-1",
		"amount":         "10000",
		"currency":       "TZS",
	}
	first, err := PayloadChecksum(fields, "secret")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := PayloadChecksum(fields, "secret")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first == "" || first != second {
		t.Errorf("expected stable checksum, got %q and %q", first, second)
	}

	empty, err := PayloadChecksum(fields, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if empty != "" {
		t.Errorf("expected empty checksum without secret, got %q", empty)
	}
}
