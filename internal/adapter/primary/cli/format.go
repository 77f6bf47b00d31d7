package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"maclock/internal/domain"
	"maclock/internal/usecase"
)

func printUnlock(w io.Writer, restored bool) {
	if restored {
		fmt.Fprintln(w, "unlocked; audio restored")
		return
	}
	fmt.Fprintln(w, "unlocked; audio not restored")
}

func printStatus(w io.Writer, platformName string, st domain.Status, output *domain.OutputConfiguration, h domain.History) {
	fmt.Fprintf(w, "platform:  %s\n", platformName)
	fmt.Fprintf(w, "power:     %s\n", st.Power)
	fmt.Fprintf(w, "locked:    %t\n", st.Locked)
	fmt.Fprintf(w, "alarming:  %t\n", st.Alarming)
	if st.PendingRestore {
		fmt.Fprintln(w, "restore:   pending")
	}
	if output != nil {
		fmt.Fprintf(w, "system:    %s\n", describeState(output.System))
		fmt.Fprintf(w, "general:   %s\n", describeState(output.General))
	} else {
		fmt.Fprintln(w, "output:    unavailable")
	}
	if !h.LastLocked.IsZero() {
		fmt.Fprintf(w, "last lock: %s\n", h.LastLocked.Format(time.RFC3339))
	}
	if !h.LastAlarm.IsZero() {
		fmt.Fprintf(w, "last alarm: %s\n", h.LastAlarm.Format(time.RFC3339))
	}
	if st.LastError != "" {
		fmt.Fprintf(w, "error:     %s\n", st.LastError)
	}
}

func describeState(s domain.DeviceState) string {
	var b strings.Builder
	if s.Name != "" {
		fmt.Fprintf(&b, "%s (%d)", s.Name, s.ID)
	} else {
		fmt.Fprintf(&b, "device %d", s.ID)
	}
	if s.Muted {
		b.WriteString(" muted")
	}
	if s.Volume != nil {
		fmt.Fprintf(&b, " volume %.0f%%/%.0f%%", s.Volume.Left*100, s.Volume.Right*100)
	}
	return b.String()
}

func printDevices(w io.Writer, devices []usecase.DeviceInfo) {
	if len(devices) == 0 {
		fmt.Fprintln(w, "no audio devices")
		return
	}
	fmt.Fprintf(w, "%-4s %-28s %-9s %-6s %-10s %s\n", "ID", "NAME", "KIND", "DIR", "VOLUME", "FLAGS")
	for _, d := range devices {
		dir := ""
		if d.InputChannels > 0 {
			dir += "in"
		}
		if d.OutputChannels > 0 {
			if dir != "" {
				dir += "/"
			}
			dir += "out"
		}
		volume := "-"
		if d.Volume != nil {
			volume = fmt.Sprintf("%.0f/%.0f", d.Volume.Left*100, d.Volume.Right*100)
		}
		var flags []string
		if d.Muted {
			flags = append(flags, "muted")
		}
		if d.Jack {
			flags = append(flags, "jack")
		}
		flags = append(flags, d.Roles...)
		fmt.Fprintf(w, "%-4d %-28s %-9s %-6s %-10s %s\n", d.ID, d.Name, d.Kind, dir, volume, strings.Join(flags, ","))
	}
}

func printEvents(w io.Writer, events []domain.Event) {
	if len(events) == 0 {
		fmt.Fprintln(w, "no events")
		return
	}
	for _, e := range events {
		line := e.Time.Local().Format("2006-01-02 15:04:05") + "  " + string(e.Kind)
		if e.Detail != "" {
			line += "  " + e.Detail
		}
		fmt.Fprintln(w, line)
	}
}

type configView struct {
	BuiltInOutputName string `json:"builtInOutputName"`
	AlarmSound        string `json:"alarmSound"`
	PollInterval      string `json:"pollInterval"`
	RestoreRetries    int    `json:"restoreRetries"`
	RestoreRetryDelay string `json:"restoreRetryDelay"`
	Addr              string `json:"addr"`
	LastLocked        string `json:"lastLocked,omitempty"`
	LastUnlocked      string `json:"lastUnlocked,omitempty"`
	LastAlarm         string `json:"lastAlarm,omitempty"`
	LastError         string `json:"lastError,omitempty"`
}

func formatOptional(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339)
}

func printConfig(w io.Writer, cfg domain.Config, h domain.History) error {
	out, err := json.MarshalIndent(configView{
		BuiltInOutputName: cfg.BuiltInOutputName,
		AlarmSound:        cfg.AlarmSound,
		PollInterval:      cfg.PollInterval.String(),
		RestoreRetries:    cfg.RestoreRetries,
		RestoreRetryDelay: cfg.RestoreRetryDelay.String(),
		Addr:              cfg.Addr,
		LastLocked:        formatOptional(h.LastLocked),
		LastUnlocked:      formatOptional(h.LastUnlocked),
		LastAlarm:         formatOptional(h.LastAlarm),
		LastError:         h.LastError,
	}, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(w, string(out))
	return nil
}
