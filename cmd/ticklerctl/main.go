package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"tickler/internal/config"
	"tickler/internal/store"
	"tickler/internal/task"
	logx "tickler/pkg/logx"
)

const usage = `usage: ticklerctl [-config path] <command> [args]

commands:
  add       add a task
  list      list open tasks
  upcoming  list tasks with a future start or due date
  done      complete a task (recurring tasks roll forward)
  rm        soft-delete a task
  settings  show or change notification settings
`

func main() {
	var cfgPath string
	flag.StringVar(&cfgPath, "config", "./config.json", "path to config file (json or yaml)")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		os.Exit(2)
	}

	st, err := openStore(cfgPath)
	if err != nil {
		fatal(err)
	}
	defer st.Close()

	switch args[0] {
	case "add":
		err = cmdAdd(st, args[1:])
	case "list":
		err = cmdList(st, false)
	case "upcoming":
		err = cmdList(st, true)
	case "done":
		err = cmdDone(st, args[1:])
	case "rm":
		err = cmdRemove(st, args[1:])
	case "settings":
		err = cmdSettings(st, args[1:])
	default:
		flag.Usage()
		os.Exit(2)
	}
	if err != nil {
		fatal(err)
	}
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, "error:", err)
	os.Exit(1)
}

func openStore(cfgPath string) (*store.Store, error) {
	cfg, err := config.NewConfigManager(cfgPath).Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	busy, err := config.ParseDurationField("storage.busy_timeout", cfg.Storage.BusyTimeout)
	if err != nil {
		return nil, err
	}
	return store.Open(store.Config{
		Driver:      cfg.Storage.Driver,
		Path:        cfg.Storage.Path,
		BusyTimeout: busy,
	}, logx.Nop())
}

func cmdAdd(st *store.Store, args []string) error {
	fs := flag.NewFlagSet("add", flag.ExitOnError)
	var (
		status   = fs.String("status", "inbox", "inbox|next|waiting|someday")
		desc     = fs.String("desc", "", "description")
		start    = fs.String("start", "", "start time (e.g. 2026-09-01 or 2026-09-01T09:00)")
		due      = fs.String("due", "", "due date")
		every    = fs.String("every", "", "recurrence: daily|weekly|monthly|yearly")
		rule     = fs.String("rule", "", "recurrence rule (e.g. FREQ=WEEKLY;BYDAY=MO,FR)")
		strategy = fs.String("strategy", "", "recurrence strategy: strict|fluid")
		contexts = fs.String("context", "", "comma-separated contexts (@home,@office)")
		tags     = fs.String("tag", "", "comma-separated tags")
	)
	if err := fs.Parse(args); err != nil {
		return err
	}
	title := strings.TrimSpace(strings.Join(fs.Args(), " "))
	if title == "" {
		return fmt.Errorf("add: title is required")
	}

	t := task.Task{
		Title:              title,
		Description:        *desc,
		Status:             task.Status(*status),
		Recurrence:         task.Frequency(*every),
		RecurrenceRule:     *rule,
		RecurrenceStrategy: task.Strategy(*strategy),
		Contexts:           splitList(*contexts),
		Tags:               splitList(*tags),
	}
	var err error
	if t.StartTime, err = normalizeWhen("start", *start); err != nil {
		return err
	}
	if t.DueDate, err = normalizeWhen("due", *due); err != nil {
		return err
	}
	if t.Recurrence != task.FreqNone && t.RecurrenceRule == "" {
		ref := time.Now()
		if at, ok := task.ParseWhen(t.DueDate); ok {
			ref = at
		}
		t.RecurrenceRule = task.DefaultRule(t.Recurrence, ref).String()
	}

	created, err := st.Put(t)
	if err != nil {
		return err
	}
	fmt.Println(created.ID)
	return nil
}

func normalizeWhen(name, raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", nil
	}
	if _, ok := task.ParseWhen(raw); !ok {
		return "", fmt.Errorf("%s: unrecognized date %q", name, raw)
	}
	return raw, nil
}

func splitList(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func cmdList(st *store.Store, upcomingOnly bool) error {
	snap := st.Snapshot()
	now := time.Now()

	if upcomingOnly {
		for _, u := range task.UpcomingSchedules(snap.Tasks, now) {
			fmt.Printf("%s  %-10s  %s\n", u.At.Local().Format("2006-01-02 15:04"), u.Task.Status, u.Task.Title)
		}
		return nil
	}

	open := make([]task.Task, 0, len(snap.Tasks))
	for _, t := range snap.Tasks {
		if t.Deleted() || t.Closed() {
			continue
		}
		open = append(open, t)
	}
	for _, t := range task.SortTasks(open) {
		line := fmt.Sprintf("%-36s  %-8s  %s", t.ID, t.Status, t.Title)
		if t.DueDate != "" {
			line += "  (due " + t.DueDate + ")"
		}
		if age := task.AgeLabel(t.CreatedAt, now); age != "" {
			line += "  [" + age + "]"
		}
		fmt.Println(line)
	}
	return nil
}

func cmdDone(st *store.Store, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("done: exactly one task id required")
	}
	t, err := st.Complete(args[0], time.Now())
	if err != nil {
		return err
	}
	if t.Status == task.StatusDone {
		fmt.Println("done:", t.Title)
	} else {
		fmt.Printf("done: %s (next due %s)\n", t.Title, t.DueDate)
	}
	return nil
}

func cmdRemove(st *store.Store, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("rm: exactly one task id required")
	}
	return st.Delete(args[0], time.Now())
}

func cmdSettings(st *store.Store, args []string) error {
	fs := flag.NewFlagSet("settings", flag.ExitOnError)
	var (
		notifications = fs.String("notifications", "", "on|off")
		morning       = fs.String("morning", "", "daily morning digest: on|off|HH:MM")
		evening       = fs.String("evening", "", "daily evening digest: on|off|HH:MM")
		language      = fs.String("language", "", "notification language (en, zh)")
	)
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *notifications == "" && *morning == "" && *evening == "" && *language == "" {
		out, err := json.MarshalIndent(st.Snapshot().Settings.Normalized(), "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	}

	_, err := st.UpdateSettings(func(s *task.Settings) {
		if v, ok := parseToggle(*notifications); ok {
			s.NotificationsEnabled = &v
		}
		applyDigest(*morning, &s.DigestMorningEnabled, &s.DigestMorningTime)
		applyDigest(*evening, &s.DigestEveningEnabled, &s.DigestEveningTime)
		if *language != "" {
			s.Language = *language
		}
	})
	return err
}

func parseToggle(raw string) (value, ok bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "on", "true", "yes":
		return true, true
	case "off", "false", "no":
		return false, true
	default:
		return false, false
	}
}

// applyDigest accepts "on", "off", or a time of day; a time implies enabled.
func applyDigest(raw string, enabled **bool, at *string) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return
	}
	if v, ok := parseToggle(raw); ok {
		*enabled = &v
		return
	}
	on := true
	*enabled = &on
	*at = raw
}
