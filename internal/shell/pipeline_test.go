package shell

import "testing"

func TestAnalyzePipelineBlocksDirectCommand(t *testing.T) {
	if err := analyzePipeline("rm -rf /"); err == nil {
		t.Error("expected rejection for rm -rf /")
	}
}

func TestAnalyzePipelineBlocksAfterPipe(t *testing.T) {
	if err := analyzePipeline("ls /tmp | xargs rm"); err == nil {
		t.Error("expected wrapper-bypass detection through xargs")
	}
}

func TestAnalyzePipelineBlocksAfterSequence(t *testing.T) {
	if err := analyzePipeline("echo hi; sudo reboot"); err == nil {
		t.Error("expected rejection for sudo after sequence operator")
	}
}

func TestAnalyzePipelineVersionSuffixAware(t *testing.T) {
	// chmod3 isn't a real binary, but systemctl-style version suffixes are
	// what matters: confirm the version-suffix strip still catches a
	// blocked command with a trailing version number.
	if err := analyzePipeline("chmod-7 777 /etc/passwd"); err == nil {
		t.Error("expected version-suffix-aware match for chmod-7")
	}
}

func TestAnalyzePipelineAllowsSafeCommand(t *testing.T) {
	if err := analyzePipeline("ls -la | grep foo"); err != nil {
		t.Errorf("safe pipeline should be allowed, got %v", err)
	}
}

func TestAnalyzePipelineUnwrapsEnvWrapper(t *testing.T) {
	if err := analyzePipeline("env FOO=bar dd if=/dev/zero of=/dev/sda"); err == nil {
		t.Error("expected wrapper-bypass detection through env")
	}
}

func TestAnalyzePipelineUnwrapsOsascriptWrapper(t *testing.T) {
	if err := analyzePipeline("osascript -e rm -rf /"); err == nil {
		t.Error("expected wrapper-bypass detection through osascript")
	}
}

func TestNormalizeCommandNameStripsPathAndVersion(t *testing.T) {
	if got := normalizeCommandName("/usr/bin/python3.11"); got != "python" {
		t.Errorf("normalizeCommandName = %q, want python", got)
	}
}
