// Package schedule decides when a weekly class slot should start recording and
// calls a trigger once per computed window per day.
package schedule

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/kbukum/voicecap/validation"
)

// Weekday is the day name used by the monitoring API.
type Weekday string

const (
	Senin  Weekday = "SENIN"
	Selasa Weekday = "SELASA"
	Rabu   Weekday = "RABU"
	Kamis  Weekday = "KAMIS"
	Jumat  Weekday = "JUMAT"
	Sabtu  Weekday = "SABTU"
	Minggu Weekday = "MINGGU"
)

// Weekdays lists the valid values, Monday first.
var Weekdays = []Weekday{Senin, Selasa, Rabu, Kamis, Jumat, Sabtu, Minggu}

var byTimeWeekday = [7]Weekday{
	time.Sunday:    Minggu,
	time.Monday:    Senin,
	time.Tuesday:   Selasa,
	time.Wednesday: Rabu,
	time.Thursday:  Kamis,
	time.Friday:    Jumat,
	time.Saturday:  Sabtu,
}

// WeekdayOf returns the weekday of t in t's location.
func WeekdayOf(t time.Time) Weekday {
	return byTimeWeekday[t.Weekday()]
}

// ParseWeekday parses a day name case-insensitively.
func ParseWeekday(s string) (Weekday, error) {
	d := Weekday(strings.ToUpper(strings.TrimSpace(s)))
	if !d.Valid() {
		return "", fmt.Errorf("schedule: unknown weekday %q", s)
	}
	return d, nil
}

// Valid reports whether d is one of Weekdays.
func (d Weekday) Valid() bool {
	for _, w := range Weekdays {
		if d == w {
			return true
		}
	}
	return false
}

// Status is the activation status of an entry.
type Status string

const (
	StatusScheduled Status = "terjadwal"
	StatusActive    Status = "aktif"
	StatusRecording Status = "merekam"
	StatusCompleted Status = "selesai"
)

var statuses = []string{string(StatusScheduled), string(StatusActive), string(StatusRecording), string(StatusCompleted)}

// TimeOfDay is a local wall-clock time at minute resolution, in minutes since midnight.
type TimeOfDay int

// ParseTimeOfDay parses "HH:MM" in the range 00:00-23:59.
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	if len(s) != 5 || s[2] != ':' || !digits(s[:2]) || !digits(s[3:]) {
		return 0, fmt.Errorf("schedule: time %q is not HH:MM", s)
	}
	h, _ := strconv.Atoi(s[:2])
	m, _ := strconv.Atoi(s[3:])
	if h > 23 || m > 59 {
		return 0, fmt.Errorf("schedule: time %q out of range", s)
	}
	return TimeOfDay(h*60 + m), nil
}

func digits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// MustTimeOfDay is ParseTimeOfDay for constants. It panics on bad input.
func MustTimeOfDay(s string) TimeOfDay {
	t, err := ParseTimeOfDay(s)
	if err != nil {
		panic(err)
	}
	return t
}

// Hour returns the hour.
func (t TimeOfDay) Hour() int { return int(t) / 60 }

// Minute returns the minute within the hour.
func (t TimeOfDay) Minute() int { return int(t) % 60 }

// Duration returns the offset from midnight.
func (t TimeOfDay) Duration() time.Duration { return time.Duration(t) * time.Minute }

// String formats as HH:MM.
func (t TimeOfDay) String() string { return fmt.Sprintf("%02d:%02d", t.Hour(), t.Minute()) }

// MarshalJSON encodes as "HH:MM".
func (t TimeOfDay) MarshalJSON() ([]byte, error) { return json.Marshal(t.String()) }

// UnmarshalJSON decodes "HH:MM".
func (t *TimeOfDay) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	v, err := ParseTimeOfDay(s)
	if err != nil {
		return err
	}
	*t = v
	return nil
}

// Lecturer is the lecturer summary embedded in schedule responses.
type Lecturer struct {
	ID     string `json:"id"`
	Name   string `json:"nama"`
	Degree string `json:"gelar,omitempty"`
}

// Entry is one weekly recurring class slot.
type Entry struct {
	ID         string    `json:"id"`
	Course     string    `json:"nama_matkul"`
	LecturerID string    `json:"dosen_id"`
	Lecturer   *Lecturer `json:"dosen,omitempty"`
	Day        Weekday   `json:"hari"`
	Start      TimeOfDay `json:"waktu_mulai"`
	End        TimeOfDay `json:"waktu_selesai"`
	Room       string    `json:"ruangan,omitempty"`
	Status     Status    `json:"status"`
	Recording  bool      `json:"sedang_rekam"`
}

// Active reports whether the entry is eligible for trigger evaluation.
func (e Entry) Active() bool { return e.Status == StatusActive }

// Validate checks the entry the same way the API does on create.
func (e Entry) Validate() error {
	days := make([]string, len(Weekdays))
	for i, d := range Weekdays {
		days[i] = string(d)
	}
	return validation.New().
		Required("id", e.ID).
		OneOf("hari", string(e.Day), days).
		OneOf("status", string(e.Status), statuses).
		Custom(e.End > e.Start, "waktu_selesai", "must be after waktu_mulai").
		Err()
}
