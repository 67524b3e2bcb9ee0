// The artifact data model. An artifact is one structured record of
// forensic interest extracted from a disk image. Artifacts are
// deduplicated on (case id, type, natural key) so re-extraction of
// the same image is idempotent.

package artifacts

import (
	"fmt"
	"strings"
	"time"

	"github.com/Velocidex/ordereddict"
)

type Type string

const (
	BrowserHistory   Type = "browser_history"
	BrowserCookie    Type = "browser_cookie"
	BrowserDownload  Type = "browser_download"
	USBDevice        Type = "usb_device"
	RunKey           Type = "run_key"
	InstalledProgram Type = "installed_program"
	DeletedFile      Type = "deleted_file"
	EventLog         Type = "event_log"
	ProgramExecution Type = "program_execution"
	Prefetch         Type = "prefetch"
	Shortcut         Type = "shortcut"
)

// Stable enumeration order - used for timeline tie breaking and for
// count reports.
func AllTypes() []Type {
	return []Type{
		BrowserHistory,
		BrowserCookie,
		BrowserDownload,
		USBDevice,
		RunKey,
		InstalledProgram,
		DeletedFile,
		EventLog,
		ProgramExecution,
		Prefetch,
		Shortcut,
	}
}

func ValidType(t Type) bool {
	for _, known := range AllTypes() {
		if known == t {
			return true
		}
	}
	return false
}

type Artifact struct {
	CaseId string `json:"case_id"`
	Type   Type   `json:"type"`

	// The type specific field combination identifying this artifact
	// for deduplication.
	NaturalKey string `json:"natural_key"`

	// Provenance - where in the image this record came from.
	Source string `json:"source"`

	Timestamp time.Time `json:"timestamp"`

	// Some artifacts carry a time range instead of a single instant
	// (e.g. usb device first/last connection).
	FirstSeen time.Time `json:"first_seen,omitempty"`
	LastSeen  time.Time `json:"last_seen,omitempty"`

	Payload *ordereddict.Dict `json:"payload"`
}

func (self *Artifact) HasTimestamp() bool {
	return !self.Timestamp.IsZero()
}

func (self *Artifact) GetString(field string) string {
	if self.Payload == nil {
		return ""
	}
	value, pres := self.Payload.GetString(field)
	if !pres {
		return ""
	}
	return value
}

func (self *Artifact) GetInt64(field string) int64 {
	if self.Payload == nil {
		return 0
	}
	value, pres := self.Payload.GetInt64(field)
	if !pres {
		return 0
	}
	return value
}

// A short human readable line for the timeline view.
func (self *Artifact) Description() string {
	switch self.Type {
	case BrowserHistory:
		return fmt.Sprintf("Visited %v", self.GetString("url"))

	case BrowserCookie:
		return fmt.Sprintf("Cookie %v set by %v",
			self.GetString("name"), self.GetString("host"))

	case BrowserDownload:
		return fmt.Sprintf("Downloaded %v", self.GetString("url"))

	case USBDevice:
		return fmt.Sprintf("USB device %v (%v) connected",
			self.GetString("serial_number"),
			self.GetString("friendly_name"))

	case RunKey:
		return fmt.Sprintf("Autorun entry %v -> %v",
			self.GetString("name"), self.GetString("command"))

	case InstalledProgram:
		return fmt.Sprintf("Program installed: %v",
			self.GetString("display_name"))

	case DeletedFile:
		return fmt.Sprintf("File deleted: %v",
			self.GetString("original_path"))

	case EventLog:
		return fmt.Sprintf("Event %v from %v",
			self.GetInt64("event_id"), self.GetString("provider"))

	case ProgramExecution:
		return fmt.Sprintf("Executed %v (%v times)",
			self.GetString("program"), self.GetInt64("run_count"))

	case Prefetch:
		return fmt.Sprintf("Prefetch: %v run %v times",
			self.GetString("executable"), self.GetInt64("run_count"))

	case Shortcut:
		return fmt.Sprintf("Shortcut to %v", self.GetString("target_path"))

	default:
		return string(self.Type)
	}
}

// Natural keys join their parts with an unlikely separator. Time
// parts are rendered in UTC nanosecond precision so two distinct
// visits never collapse.
func MakeKey(parts ...string) string {
	return strings.Join(parts, "|")
}

func TimeKey(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}
