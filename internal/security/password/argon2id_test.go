package password

import (
	"strings"
	"testing"
)

func TestHashVerify(t *testing.T) {
	phc, err := Hash(Default, "correct horse battery")
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if !strings.HasPrefix(phc, "$argon2id$v=19$") {
		t.Fatalf("unexpected PHC prefix: %q", phc)
	}
	if !Verify("correct horse battery", phc) {
		t.Fatal("verify should succeed with right password")
	}
	if Verify("wrong", phc) {
		t.Fatal("verify should fail with wrong password")
	}
}

func TestVerify_MalformedPHC(t *testing.T) {
	for _, bad := range []string{"", "plain", "$argon2i$v=19$m=1,t=1,p=1$a$b", "$argon2id$v=18$m=1,t=1,p=1$a$b"} {
		if Verify("x", bad) {
			t.Fatalf("malformed PHC should fail: %q", bad)
		}
	}
}

func TestHash_EmptyPassword(t *testing.T) {
	if _, err := Hash(Default, ""); err == nil {
		t.Fatal("empty password should be rejected")
	}
}
