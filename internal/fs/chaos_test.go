package fs

import (
	"os"
	"path/filepath"
	"testing"
)

func Test_Chaos_OpenFailRate_One_InjectsOpenFailureOnEveryOpen(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "sequences.bin")
	if err := os.WriteFile(path, []byte("data"), 0o644); err != nil {
		t.Fatalf("setup WriteFile(%q): %v", path, err)
	}

	chaos := NewChaos(NewReal(), 0, ChaosConfig{OpenFailRate: 1.0})

	if _, err := chaos.Open(path); err == nil {
		t.Fatalf("Open(%q) through OpenFailRate=1.0: want error, got nil", path)
	} else if !IsChaosErr(err) {
		t.Errorf("IsChaosErr(Open error) = false, want true (err=%v)", err)
	}
}

func Test_Chaos_ReadFailRate_One_InjectsReadFailureOnEveryReadFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "sequences.bin")
	if err := os.WriteFile(path, []byte("data"), 0o644); err != nil {
		t.Fatalf("setup WriteFile(%q): %v", path, err)
	}

	chaos := NewChaos(NewReal(), 0, ChaosConfig{ReadFailRate: 1.0})

	if _, err := chaos.ReadFile(path); err == nil {
		t.Fatalf("ReadFile(%q) through ReadFailRate=1.0: want error, got nil", path)
	} else if !IsChaosErr(err) {
		t.Errorf("IsChaosErr(ReadFile error) = false, want true (err=%v)", err)
	}
}

func Test_Chaos_ZeroConfig_PassesEverythingThrough(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "sequences.bin")

	chaos := NewChaos(NewReal(), 0, ChaosConfig{})

	if err := chaos.WriteFileAtomic(path, []byte("hello"), 0o644); err != nil {
		t.Fatalf("WriteFileAtomic(%q): %v", path, err)
	}

	data, err := chaos.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile(%q): %v", path, err)
	}

	if string(data) != "hello" {
		t.Fatalf("ReadFile(%q) = %q, want %q", path, data, "hello")
	}

	f, err := chaos.Open(path)
	if err != nil {
		t.Fatalf("Open(%q): %v", path, err)
	}

	if err := f.Close(); err != nil {
		t.Fatalf("Close(%q): %v", path, err)
	}
}

func Test_IsChaosErr_FalseForRealFilesystemError(t *testing.T) {
	t.Parallel()

	chaos := NewChaos(NewReal(), 0, ChaosConfig{})
	path := filepath.Join(t.TempDir(), "missing.bin")

	_, err := chaos.ReadFile(path)
	if err == nil {
		t.Fatalf("ReadFile(%q) on a missing file: want error, got nil", path)
	}

	if IsChaosErr(err) {
		t.Errorf("IsChaosErr(%v) = true, want false for a real os.IsNotExist error", err)
	}
}

func Test_NewChaos_PanicsOnNilFS(t *testing.T) {
	t.Parallel()

	defer func() {
		if recover() == nil {
			t.Fatalf("NewChaos(nil, ...): want panic, got none")
		}
	}()

	NewChaos(nil, 0, ChaosConfig{})
}
