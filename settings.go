package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
)

// DisplayMode selects which caption lines the overlay shows.
type DisplayMode int

const (
	DisplayBoth DisplayMode = iota
	DisplayTranslationOnly
	DisplayOriginalOnly
)

func (m DisplayMode) String() string {
	switch m {
	case DisplayBoth:
		return "both"
	case DisplayTranslationOnly:
		return "translation"
	case DisplayOriginalOnly:
		return "original"
	}
	return fmt.Sprintf("DisplayMode(%d)", int(m))
}

// Next cycles Both -> TranslationOnly -> OriginalOnly -> Both.
func (m DisplayMode) Next() DisplayMode {
	switch m {
	case DisplayBoth:
		return DisplayTranslationOnly
	case DisplayTranslationOnly:
		return DisplayOriginalOnly
	default:
		return DisplayBoth
	}
}

// Visibility returns the (showOriginal, showTranslation) pair of the mode.
func (m DisplayMode) Visibility() (original, translation bool) {
	switch m {
	case DisplayTranslationOnly:
		return false, true
	case DisplayOriginalOnly:
		return true, false
	default:
		return true, true
	}
}

// Ranges used by the control panel; the validate tags on DisplaySettings
// carry the same bounds.
const (
	MinFontSize   = 10
	MaxFontSize   = 48
	MinColorIndex = 1
	MaxColorIndex = 10
)

// DisplaySettings is the persisted overlay configuration. The validate tags
// are the ranges repair enforces.
type DisplaySettings struct {
	TargetLanguage       string      `json:"targetLanguage" validate:"required,notblank"`
	FontSize             int         `json:"fontSize" validate:"min=10,max=48"`
	ShowOriginal         bool        `json:"showOriginal"`
	ShowTranslation      bool        `json:"showTranslation"`
	ColorIndex           int         `json:"colorIndex" validate:"min=1,max=10"`
	BackgroundColorIndex int         `json:"backgroundColorIndex" validate:"min=1,max=10"`
	Opacity              uint8       `json:"opacity" validate:"min=1"`
	DisplayMode          DisplayMode `json:"displayMode" validate:"oneof=0 1 2"`
}

// settingsValidator reports failing fields by their JSON names.
var settingsValidator = newSettingsValidator()

func newSettingsValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		return strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
	})
	return v
}

// DefaultSettings returns the documented defaults.
func DefaultSettings() DisplaySettings {
	return DisplaySettings{
		TargetLanguage:       "ru",
		FontSize:             18,
		ShowOriginal:         true,
		ShowTranslation:      true,
		ColorIndex:           1,
		BackgroundColorIndex: 8,
		Opacity:              150,
		DisplayMode:          DisplayBoth,
	}
}

// SetDisplayMode sets the mode and its matching visibility pair.
func (s *DisplaySettings) SetDisplayMode(m DisplayMode) {
	s.DisplayMode = m
	s.ShowOriginal, s.ShowTranslation = m.Visibility()
}

// BaselineOpacity is the configured opacity as a fraction in (0, 1].
func (s DisplaySettings) BaselineOpacity() float64 {
	return float64(clampInt(int(s.Opacity), 1, 255)) / 255.0
}

// SettingsPatch is a partial edit from the overlay settings panel. Nil fields
// keep their current value; the result is repaired like a loaded file.
type SettingsPatch struct {
	TargetLanguage       *string      `json:"targetLanguage,omitempty"`
	FontSize             *int         `json:"fontSize,omitempty"`
	ColorIndex           *int         `json:"colorIndex,omitempty"`
	BackgroundColorIndex *int         `json:"backgroundColorIndex,omitempty"`
	Opacity              *int         `json:"opacity,omitempty"`
	DisplayMode          *DisplayMode `json:"displayMode,omitempty"`
}

// Apply copies the set fields into s.
func (p SettingsPatch) Apply(s *DisplaySettings) {
	if p.TargetLanguage != nil {
		s.TargetLanguage = strings.TrimSpace(*p.TargetLanguage)
	}
	if p.FontSize != nil {
		s.FontSize = *p.FontSize
	}
	if p.ColorIndex != nil {
		s.ColorIndex = *p.ColorIndex
	}
	if p.BackgroundColorIndex != nil {
		s.BackgroundColorIndex = *p.BackgroundColorIndex
	}
	if p.Opacity != nil {
		s.Opacity = uint8(clampInt(*p.Opacity, 0, 255))
	}
	if p.DisplayMode != nil {
		s.SetDisplayMode(*p.DisplayMode)
	}
}

// repair replaces invalid fields with defaults and returns the names of the
// fields it fixed.
func (s *DisplaySettings) repair() []string {
	d := DefaultSettings()
	var fixed []string

	var verrs validator.ValidationErrors
	if errors.As(settingsValidator.Struct(s), &verrs) {
		for _, fe := range verrs {
			s.resetField(fe.Field(), d)
			fixed = append(fixed, fe.Field())
		}
	}
	if o, t := s.DisplayMode.Visibility(); s.ShowOriginal != o || s.ShowTranslation != t {
		s.ShowOriginal, s.ShowTranslation = o, t
		fixed = append(fixed, "showOriginal/showTranslation")
	}
	return fixed
}

// resetField copies the field with the given JSON name from d.
func (s *DisplaySettings) resetField(name string, d DisplaySettings) {
	switch name {
	case "targetLanguage":
		s.TargetLanguage = d.TargetLanguage
	case "fontSize":
		s.FontSize = d.FontSize
	case "colorIndex":
		s.ColorIndex = d.ColorIndex
	case "backgroundColorIndex":
		s.BackgroundColorIndex = d.BackgroundColorIndex
	case "opacity":
		s.Opacity = d.Opacity
	case "displayMode":
		s.DisplayMode = d.DisplayMode
	}
}

// decodeSettings decodes each field on its own so one bad value only costs
// that field. Missing or undecodable fields are left invalid for repair,
// except booleans which take their default.
func decodeSettings(data []byte) (DisplaySettings, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return DisplaySettings{}, err
	}

	d := DefaultSettings()
	var s DisplaySettings
	s.ShowOriginal, s.ShowTranslation = d.ShowOriginal, d.ShowTranslation

	decodeField(fields, "targetLanguage", &s.TargetLanguage)
	decodeField(fields, "fontSize", &s.FontSize)
	decodeField(fields, "showOriginal", &s.ShowOriginal)
	decodeField(fields, "showTranslation", &s.ShowTranslation)
	decodeField(fields, "colorIndex", &s.ColorIndex)
	decodeField(fields, "backgroundColorIndex", &s.BackgroundColorIndex)

	// Opacity is decoded wide so 300 or -1 is repaired instead of failing.
	var opacity int
	if decodeField(fields, "opacity", &opacity) && opacity >= 1 && opacity <= 255 {
		s.Opacity = uint8(opacity)
	}
	mode := -1
	decodeField(fields, "displayMode", &mode)
	s.DisplayMode = DisplayMode(mode)
	return s, nil
}

func decodeField(fields map[string]json.RawMessage, name string, dst any) bool {
	raw, ok := fields[name]
	if !ok {
		return false
	}
	return json.Unmarshal(raw, dst) == nil
}

// SettingsStore owns the one DisplaySettings instance of the process and
// broadcasts every saved change to its subscribers.
type SettingsStore struct {
	mu      sync.Mutex
	path    string
	current DisplaySettings
	subs    []chan DisplaySettings
	log     *logrus.Entry
}

// LoadSettings reads path, repairing invalid fields one by one. Repaired
// documents are written back. A missing file is created with defaults; an
// unreadable one yields defaults and is left untouched.
func LoadSettings(path string, log *logrus.Logger) *SettingsStore {
	if log == nil {
		log = discardLogger()
	}
	s := &SettingsStore{
		path:    path,
		current: DefaultSettings(),
		log:     log.WithField("component", "settings"),
	}

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		s.log.Infof("settings file not found at %s, creating with defaults", path)
		if err := s.write(s.current); err != nil {
			s.log.WithError(err).Warn("could not create settings file")
		}
		return s
	case err != nil:
		s.log.WithError(err).Warn("settings load error, using defaults")
		return s
	case strings.TrimSpace(string(data)) == "":
		s.log.Warn("settings file is empty, using defaults")
		return s
	}

	loaded, err := decodeSettings(data)
	if err != nil {
		s.log.WithError(err).Warn("settings file is not valid JSON, using defaults")
		return s
	}

	if fixed := loaded.repair(); len(fixed) > 0 {
		s.logRepairs("LoadSettings", fixed)
		if err := s.write(loaded); err != nil {
			s.log.WithError(err).Warn("could not persist repaired settings")
		}
	}
	s.current = loaded
	return s
}

func (s *SettingsStore) logRepairs(op string, fixed []string) {
	for _, name := range fixed {
		err := &CaptureError{Kind: KindSettingsField, Op: op, Err: fmt.Errorf("invalid %s", name)}
		s.log.WithError(err).WithField("field", name).Warn("invalid setting replaced with default")
	}
}

// Snapshot returns a copy of the current settings.
func (s *SettingsStore) Snapshot() DisplaySettings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// TargetLanguage is a shortcut for the translation path.
func (s *SettingsStore) TargetLanguage() string {
	return s.Snapshot().TargetLanguage
}

// Update applies fn, repairs the result, saves it and notifies subscribers.
// The in-memory settings are updated even when saving fails.
func (s *SettingsStore) Update(fn func(*DisplaySettings)) (DisplaySettings, error) {
	s.mu.Lock()
	next := s.current
	fn(&next)
	fixed := next.repair()
	s.current = next
	subs := append([]chan DisplaySettings(nil), s.subs...)
	s.mu.Unlock()

	s.logRepairs("SettingsStore.Update", fixed)
	err := s.write(next)
	if err != nil {
		s.log.WithError(err).Warn("settings save error")
	}
	for _, ch := range subs {
		offerLatest(ch, next)
	}
	return next, err
}

// ResetToDefaults restores and saves the default settings.
func (s *SettingsStore) ResetToDefaults() (DisplaySettings, error) {
	return s.Update(func(ds *DisplaySettings) { *ds = DefaultSettings() })
}

// Subscribe returns a channel that receives settings after every save. Slow
// readers only ever see the latest value.
func (s *SettingsStore) Subscribe() <-chan DisplaySettings {
	ch := make(chan DisplaySettings, 1)
	s.mu.Lock()
	s.subs = append(s.subs, ch)
	s.mu.Unlock()
	return ch
}

func (s *SettingsStore) write(ds DisplaySettings) error {
	if dir := filepath.Dir(s.path); dir != "" {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return fmt.Errorf("create settings dir: %w", err)
		}
	}
	data, err := json.MarshalIndent(ds, "", "  ")
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0644); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}
	s.log.Debugf("settings saved to %s", s.path)
	return nil
}

// offerLatest delivers v on a 1-buffered channel, replacing a stale value.
func offerLatest[T any](ch chan T, v T) {
	for {
		select {
		case ch <- v:
			return
		default:
		}
		select {
		case <-ch:
		default:
		}
	}
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
