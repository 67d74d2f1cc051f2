package profiles_test

import (
	"encoding/json"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/spf13/afero"

	"marquee/models"
	"marquee/services/profiles"
)

func newService(t *testing.T) (*profiles.Service, afero.Fs) {
	t.Helper()
	fs := afero.NewMemMapFs()
	svc, err := profiles.NewService(fs, "/data")
	if err != nil {
		t.Fatalf("failed to create profiles service: %v", err)
	}
	return svc, fs
}

// brokenFs fails every file creation once broken is set.
type brokenFs struct {
	afero.Fs
	broken atomic.Bool
}

func (f *brokenFs) Create(name string) (afero.File, error) {
	if f.broken.Load() {
		return nil, errors.New("read-only file system")
	}
	return f.Fs.Create(name)
}

func TestCreateFirstProfileBecomesActive(t *testing.T) {
	svc, _ := newService(t)

	first, err := svc.Create("u1", profiles.NewProfile{Title: " Alice "})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if first.Title != "Alice" {
		t.Fatalf("expected trimmed title, got %q", first.Title)
	}
	if _, err := svc.Create("u1", profiles.NewProfile{Title: "Bob"}); err != nil {
		t.Fatalf("create second: %v", err)
	}

	if got := svc.ActiveID("u1"); got != first.ID {
		t.Fatalf("expected first profile to be active, got %q", got)
	}
	if got := len(svc.List("u1")); got != 2 {
		t.Fatalf("expected 2 profiles, got %d", got)
	}
	if got := len(svc.List("u2")); got != 0 {
		t.Fatalf("profiles leaked across users: %d", got)
	}
}

func TestCreateValidation(t *testing.T) {
	svc, _ := newService(t)

	if _, err := svc.Create("u1", profiles.NewProfile{Title: "   "}); !errors.Is(err, profiles.ErrTitleRequired) {
		t.Fatalf("expected ErrTitleRequired, got %v", err)
	}
	if _, err := svc.Create("u1", profiles.NewProfile{Title: "ElevenChars"}); !errors.Is(err, profiles.ErrTitleTooLong) {
		t.Fatalf("expected ErrTitleTooLong, got %v", err)
	}
	// ten runes, multi-byte
	if _, err := svc.Create("u1", profiles.NewProfile{Title: "가나다라마바사아자차"}); err != nil {
		t.Fatalf("expected 10 rune title to be accepted: %v", err)
	}
	if _, err := svc.Create("u1", profiles.NewProfile{Title: "Kids"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := svc.Create("u1", profiles.NewProfile{Title: "kids"}); !errors.Is(err, profiles.ErrTitleTaken) {
		t.Fatalf("expected ErrTitleTaken, got %v", err)
	}
	if _, err := svc.Create("", profiles.NewProfile{Title: "x"}); !errors.Is(err, profiles.ErrUserIDRequired) {
		t.Fatalf("expected ErrUserIDRequired, got %v", err)
	}
	if _, err := svc.Create("u1", profiles.NewProfile{Title: "Old", AgeLimit: 99}); !errors.Is(err, profiles.ErrInvalidAgeLimit) {
		t.Fatalf("expected ErrInvalidAgeLimit, got %v", err)
	}
}

func TestProfileLimit(t *testing.T) {
	svc, _ := newService(t)

	for _, title := range []string{"a", "b", "c", "d", "e"} {
		if _, err := svc.Create("u1", profiles.NewProfile{Title: title}); err != nil {
			t.Fatalf("create %s: %v", title, err)
		}
	}
	if _, err := svc.Create("u1", profiles.NewProfile{Title: "f"}); !errors.Is(err, profiles.ErrProfileLimit) {
		t.Fatalf("expected ErrProfileLimit, got %v", err)
	}
}

func TestDeleteActiveReassignsPointer(t *testing.T) {
	svc, _ := newService(t)

	a, _ := svc.Create("u1", profiles.NewProfile{Title: "a"})
	b, _ := svc.Create("u1", profiles.NewProfile{Title: "b"})

	active, err := svc.Delete("u1", a.ID)
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if active != b.ID || svc.ActiveID("u1") != b.ID {
		t.Fatalf("expected active to move to %s, got %s", b.ID, active)
	}

	active, err = svc.Delete("u1", b.ID)
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if active != "" || svc.ActiveID("u1") != "" {
		t.Fatalf("expected no active profile, got %q", active)
	}
	if _, ok := svc.Active("u1"); ok {
		t.Fatalf("expected Active to report none")
	}

	if _, err := svc.Delete("u1", b.ID); !errors.Is(err, profiles.ErrProfileNotFound) {
		t.Fatalf("expected ErrProfileNotFound, got %v", err)
	}
}

func TestDeleteInactiveKeepsPointer(t *testing.T) {
	svc, _ := newService(t)

	a, _ := svc.Create("u1", profiles.NewProfile{Title: "a"})
	b, _ := svc.Create("u1", profiles.NewProfile{Title: "b"})

	if _, err := svc.Delete("u1", b.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if svc.ActiveID("u1") != a.ID {
		t.Fatalf("active profile should not change")
	}
}

func TestSetActiveAndUpdate(t *testing.T) {
	svc, _ := newService(t)

	_, _ = svc.Create("u1", profiles.NewProfile{Title: "a"})
	b, _ := svc.Create("u1", profiles.NewProfile{Title: "b"})

	if err := svc.SetActive("u1", b.ID); err != nil {
		t.Fatalf("set active: %v", err)
	}
	if svc.ActiveID("u1") != b.ID {
		t.Fatalf("expected %s active", b.ID)
	}
	if err := svc.SetActive("u1", "missing"); !errors.Is(err, profiles.ErrProfileNotFound) {
		t.Fatalf("expected ErrProfileNotFound, got %v", err)
	}

	title := "A"
	if _, err := svc.Update("u1", b.ID, models.ProfileUpdate{Title: &title}); !errors.Is(err, profiles.ErrTitleTaken) {
		t.Fatalf("expected ErrTitleTaken, got %v", err)
	}
	title = "B"
	adult := true
	updated, err := svc.Update("u1", b.ID, models.ProfileUpdate{Title: &title, AdultOnly: &adult})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Title != "B" || !updated.AdultOnly {
		t.Fatalf("unexpected update result: %+v", updated)
	}
}

func TestPinLifecycle(t *testing.T) {
	svc, _ := newService(t)
	p, _ := svc.Create("u1", profiles.NewProfile{Title: "a"})

	if _, err := svc.SetPin("u1", p.ID, "12a4"); !errors.Is(err, profiles.ErrPinFormat) {
		t.Fatalf("expected ErrPinFormat, got %v", err)
	}
	locked, err := svc.SetPin("u1", p.ID, "1234")
	if err != nil {
		t.Fatalf("set pin: %v", err)
	}
	if !locked.Locked || !locked.HasPin() {
		t.Fatalf("expected locked profile")
	}
	if err := svc.VerifyPin("u1", p.ID, "0000"); !errors.Is(err, profiles.ErrPinInvalid) {
		t.Fatalf("expected ErrPinInvalid, got %v", err)
	}
	if err := svc.VerifyPin("u1", p.ID, "1234"); err != nil {
		t.Fatalf("verify pin: %v", err)
	}

	unlocked, err := svc.ClearPin("u1", p.ID)
	if err != nil {
		t.Fatalf("clear pin: %v", err)
	}
	if unlocked.Locked || unlocked.HasPin() {
		t.Fatalf("expected unlocked profile")
	}
	if err := svc.VerifyPin("u1", p.ID, ""); err != nil {
		t.Fatalf("profile without PIN should verify: %v", err)
	}
}

func TestPersistenceRoundTrip(t *testing.T) {
	svc, fs := newService(t)
	a, _ := svc.Create("u1", profiles.NewProfile{Title: "a"})
	b, _ := svc.Create("u1", profiles.NewProfile{Title: "b"})
	if _, err := svc.SetPin("u1", b.ID, "4321"); err != nil {
		t.Fatalf("set pin: %v", err)
	}
	if err := svc.SetActive("u1", b.ID); err != nil {
		t.Fatalf("set active: %v", err)
	}

	reloaded, err := profiles.NewService(fs, "/data")
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	list := reloaded.List("u1")
	if len(list) != 2 || list[0].ID != a.ID {
		t.Fatalf("unexpected reloaded profiles: %+v", list)
	}
	if reloaded.ActiveID("u1") != b.ID {
		t.Fatalf("active pointer not persisted")
	}
	if err := reloaded.VerifyPin("u1", b.ID, "4321"); err != nil {
		t.Fatalf("PIN hash not persisted: %v", err)
	}

	// the hash never leaks through the API representation
	payload, _ := json.Marshal(list[1])
	var decoded map[string]any
	_ = json.Unmarshal(payload, &decoded)
	if _, ok := decoded["pinHash"]; ok {
		t.Fatalf("pin hash leaked into profile JSON: %s", payload)
	}
	if decoded["hasPin"] != true {
		t.Fatalf("expected hasPin true, got %v", decoded["hasPin"])
	}
}

func TestFailedSaveLeavesDirectoryUnchanged(t *testing.T) {
	fs := &brokenFs{Fs: afero.NewMemMapFs()}
	svc, err := profiles.NewService(fs, "/data")
	if err != nil {
		t.Fatalf("failed to create profiles service: %v", err)
	}
	first, err := svc.Create("u1", profiles.NewProfile{Title: "First"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	second, err := svc.Create("u1", profiles.NewProfile{Title: "Second"})
	if err != nil {
		t.Fatalf("create second: %v", err)
	}

	fs.broken.Store(true)

	for i := 0; i < 6; i++ {
		_, err := svc.Create("u1", profiles.NewProfile{Title: "Extra"})
		if err == nil || errors.Is(err, profiles.ErrProfileLimit) {
			t.Fatalf("attempt %d: expected a write error, got %v", i, err)
		}
	}
	if _, err := svc.Create("u2", profiles.NewProfile{Title: "Solo"}); err == nil {
		t.Fatalf("expected create for a new user to fail")
	}
	if got := svc.List("u2"); len(got) != 0 {
		t.Fatalf("expected no profiles for u2, got %d", len(got))
	}

	title := "Renamed"
	if _, err := svc.Update("u1", first.ID, models.ProfileUpdate{Title: &title}); err == nil {
		t.Fatalf("expected update to fail")
	}
	if err := svc.SetActive("u1", second.ID); err == nil {
		t.Fatalf("expected set active to fail")
	}
	if _, err := svc.SetPin("u1", first.ID, "1234"); err == nil {
		t.Fatalf("expected set pin to fail")
	}
	if _, err := svc.Delete("u1", first.ID); err == nil {
		t.Fatalf("expected delete to fail")
	}

	list := svc.List("u1")
	if len(list) != 2 || list[0].ID != first.ID || list[1].ID != second.ID {
		t.Fatalf("expected the two saved profiles, got %+v", list)
	}
	if list[0].Title != "First" || list[0].Locked {
		t.Fatalf("expected first profile untouched, got %+v", list[0])
	}
	if got := svc.ActiveID("u1"); got != first.ID {
		t.Fatalf("expected active pointer to stay on first, got %q", got)
	}

	fs.broken.Store(false)
	reloaded, err := profiles.NewService(fs, "/data")
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if got := reloaded.List("u1"); len(got) != 2 {
		t.Fatalf("expected 2 persisted profiles, got %d", len(got))
	}
}
