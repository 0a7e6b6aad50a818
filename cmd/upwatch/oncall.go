package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/ankityadav/upwatch/internal/storage"
)

const scheduleTimeLayout = "2006-01-02 15:04"

var oncallCmd = &cobra.Command{
	Use:   "oncall",
	Short: "Manage on-call contacts and schedules",
}

var addContactCmd = &cobra.Command{
	Use:   "add-contact [name] [email]",
	Short: "Add an on-call contact",
	Args:  cobra.ExactArgs(2),
	RunE:  withApp(runAddContact),
}

var addScheduleCmd = &cobra.Command{
	Use:   "add-schedule [contact-id]",
	Short: "Put a contact on call for a time window",
	Long: `Put a contact on call for a time window. Times are UTC in the form "2006-01-02 15:04".
Daily schedules repeat the time-of-day window every day; weekly schedules repeat
the weekday and time-of-day window every week.`,
	Args: cobra.ExactArgs(1),
	RunE: withApp(runAddSchedule),
}

var oncallListCmd = &cobra.Command{
	Use:   "list",
	Short: "List contacts and schedules",
	RunE:  withApp(runOncallList),
}

var oncallNowCmd = &cobra.Command{
	Use:   "now",
	Short: "Show who is on call right now",
	RunE:  withApp(runOncallNow),
}

var notifyCmd = &cobra.Command{
	Use:   "notify",
	Short: "Notification utilities",
}

var notifyTestCmd = &cobra.Command{
	Use:   "test",
	Short: "Send a test notification to every configured recipient",
	RunE:  withApp(runNotifyTest),
}

var (
	contactPhone string

	scheduleStart      string
	scheduleEnd        string
	scheduleRecurrence string
	scheduleLabel      string
)

func init() {
	rootCmd.AddCommand(oncallCmd, notifyCmd)
	oncallCmd.AddCommand(addContactCmd, addScheduleCmd, oncallListCmd, oncallNowCmd)
	notifyCmd.AddCommand(notifyTestCmd)

	addContactCmd.Flags().StringVarP(&contactPhone, "phone", "p", "", "Phone number")

	f := addScheduleCmd.Flags()
	f.StringVarP(&scheduleStart, "start", "s", "", "Window start, UTC \"YYYY-MM-DD HH:MM\"")
	f.StringVarP(&scheduleEnd, "end", "e", "", "Window end, UTC \"YYYY-MM-DD HH:MM\"")
	f.StringVarP(&scheduleRecurrence, "recurrence", "r", string(storage.RecurrenceNone), "none, daily or weekly")
	f.StringVarP(&scheduleLabel, "label", "l", "", "Free-form label, e.g. \"weekend\"")
	_ = addScheduleCmd.MarkFlagRequired("start")
	_ = addScheduleCmd.MarkFlagRequired("end")
}

func runAddContact(cmd *cobra.Command, a *app, args []string) error {
	contact := &storage.OnCallContact{
		Name:  args[0],
		Email: args[1],
		Phone: contactPhone,
	}
	if err := a.db.CreateContact(contact); err != nil {
		return fmt.Errorf("failed to create contact: %w", err)
	}
	fmt.Printf("Contact created successfully (ID: %d)\n", contact.ID)
	return nil
}

func runAddSchedule(cmd *cobra.Command, a *app, args []string) error {
	contactID, err := parseID(args[0])
	if err != nil {
		return err
	}

	start, err := time.ParseInLocation(scheduleTimeLayout, scheduleStart, time.UTC)
	if err != nil {
		return fmt.Errorf("invalid start time: %w", err)
	}
	end, err := time.ParseInLocation(scheduleTimeLayout, scheduleEnd, time.UTC)
	if err != nil {
		return fmt.Errorf("invalid end time: %w", err)
	}

	schedule := &storage.OnCallSchedule{
		ContactID:  contactID,
		Label:      scheduleLabel,
		StartTime:  start,
		EndTime:    end,
		Recurrence: storage.Recurrence(scheduleRecurrence),
	}
	if err := a.db.CreateSchedule(schedule); err != nil {
		return fmt.Errorf("failed to create schedule: %w", err)
	}
	fmt.Printf("Schedule created successfully (ID: %d)\n", schedule.ID)
	return nil
}

func runOncallList(cmd *cobra.Command, a *app, args []string) error {
	contacts, err := a.db.ListContacts()
	if err != nil {
		return fmt.Errorf("failed to list contacts: %w", err)
	}
	schedules, err := a.db.ListSchedules()
	if err != nil {
		return fmt.Errorf("failed to list schedules: %w", err)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "CONTACT\tNAME\tEMAIL\tPHONE")
	for _, c := range contacts {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", c.ID, c.Name, c.Email, c.Phone)
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "SCHEDULE\tCONTACT\tSTART (UTC)\tEND (UTC)\tREPEATS\tLABEL")
	for _, s := range schedules {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\n",
			s.ID, s.Contact.Name,
			s.StartTime.UTC().Format(scheduleTimeLayout),
			s.EndTime.UTC().Format(scheduleTimeLayout),
			s.Recurrence, s.Label)
	}
	return w.Flush()
}

func runOncallNow(cmd *cobra.Command, a *app, args []string) error {
	s, err := a.engine().ResolveOnCall(time.Now())
	if err != nil {
		return err
	}
	if s == nil {
		fmt.Println("Nobody is on call")
		return nil
	}
	fmt.Printf("%s <%s>", s.Contact.Name, s.Contact.Email)
	if s.Contact.Phone != "" {
		fmt.Printf(" %s", s.Contact.Phone)
	}
	if s.Label != "" {
		fmt.Printf(" (%s)", s.Label)
	}
	fmt.Println()
	return nil
}

func runNotifyTest(cmd *cobra.Command, a *app, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
	defer cancel()

	if a.cfg.Notifications.Email.Enabled() {
		if a.notifier.TestConnection(ctx) {
			fmt.Println("SMTP connection OK")
		} else {
			fmt.Println("SMTP connection failed, see log for details")
		}
	}

	if err := a.notifier.SendTest(ctx); err != nil {
		return fmt.Errorf("test notification failed: %w", err)
	}
	fmt.Println("Test notification sent")
	return nil
}
