package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/ankityadav/upwatch/internal/config"
	"github.com/ankityadav/upwatch/internal/downtime"
	"github.com/ankityadav/upwatch/internal/storage"
)

var addCmd = &cobra.Command{
	Use:   "add [url]",
	Short: "Add a new target",
	Args:  cobra.ExactArgs(1),
	RunE:  withApp(runAdd),
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List all targets",
	RunE:  withApp(runList),
}

var removeCmd = &cobra.Command{
	Use:   "remove [id]",
	Short: "Remove a target by ID",
	Args:  cobra.ExactArgs(1),
	RunE:  withApp(runRemove),
}

var checkCmd = &cobra.Command{
	Use:   "check [id]",
	Short: "Check a target now and print the result",
	Long: `Check a target now and print the result. The check is recorded and feeds
incident tracking like a scheduled one.

The check runs in this process, not in a running daemon. It only waits for
other checks started by this command; it can overlap a scheduled check of the
same target in another upwatch process.`,
	Args: cobra.ExactArgs(1),
	RunE: withApp(runCheck),
}

var statsCmd = &cobra.Command{
	Use:   "stats [id]",
	Short: "Show the downtime log of a target",
	Args:  cobra.ExactArgs(1),
	RunE:  withApp(runStats),
}

var incidentsCmd = &cobra.Command{
	Use:   "incidents [id]",
	Short: "List recent incidents, optionally for one target",
	Args:  cobra.MaximumNArgs(1),
	RunE:  withApp(runIncidents),
}

var (
	addName         string
	addMethod       string
	addInterval     int
	addTimeout      int
	addAlertType    string
	addKeyword      string
	addStatusCodes  string
	addHeaders      string
	addBody         string
	addRedirects    bool
	addCookies      bool
	addCheckTLS     bool
	addCheckDNS     bool
	addTLSThreshold int
	addDisabled     bool

	incidentsLimit int
)

func init() {
	rootCmd.AddCommand(addCmd, listCmd, removeCmd, checkCmd, statsCmd, incidentsCmd)

	f := addCmd.Flags()
	f.StringVarP(&addName, "name", "n", "", "Target name (defaults to the URL)")
	f.StringVarP(&addMethod, "method", "m", "GET", "HTTP method")
	f.IntVarP(&addInterval, "interval", "i", config.DefaultCheckInterval, "Check interval in seconds (min 30)")
	f.IntVarP(&addTimeout, "timeout", "t", config.DefaultTimeout, "Request timeout in seconds")
	f.StringVarP(&addAlertType, "alert", "a", string(storage.AlertUnavailable), "Alert type: unavailable, contains_keyword, not_contains_keyword, http_status_other_than")
	f.StringVarP(&addKeyword, "keyword", "k", "", "Keyword for the keyword alert types")
	f.StringVarP(&addStatusCodes, "codes", "c", "", "Allowed status codes for http_status_other_than (comma-separated)")
	f.StringVar(&addHeaders, "headers", "", `Request headers as a JSON object, e.g. '{"Authorization":"Bearer x"}'`)
	f.StringVar(&addBody, "body", "", "Request body; {timestamp} is replaced by the Unix time")
	f.BoolVar(&addRedirects, "follow-redirects", false, "Follow up to 5 redirects")
	f.BoolVar(&addCookies, "accept-cookies", false, "Keep cookies across redirects")
	f.BoolVar(&addCheckTLS, "check-tls", false, "Validate the TLS certificate of https targets")
	f.BoolVar(&addCheckDNS, "check-dns", false, "Verify the host name resolves")
	f.IntVar(&addTLSThreshold, "tls-threshold", config.DefaultTLSExpiryThreshold, "Warn this many days before certificate expiry")
	f.BoolVar(&addDisabled, "disabled", false, "Create the target without scheduling it")

	incidentsCmd.Flags().IntVarP(&incidentsLimit, "limit", "l", 20, "Maximum number of incidents to show")
}

func runAdd(cmd *cobra.Command, a *app, args []string) error {
	url := args[0]
	name := addName
	if name == "" {
		name = url
	}

	target := &storage.Target{
		Name:               name,
		URL:                url,
		Method:             addMethod,
		CheckInterval:      addInterval,
		Timeout:            addTimeout,
		AlertType:          storage.AlertType(addAlertType),
		AlertKeyword:       addKeyword,
		AlertStatusCodes:   addStatusCodes,
		Headers:            addHeaders,
		Body:               addBody,
		FollowRedirects:    addRedirects,
		AcceptCookies:      addCookies,
		CheckTLS:           addCheckTLS,
		CheckDNS:           addCheckDNS,
		TLSExpiryThreshold: addTLSThreshold,
		Enabled:            !addDisabled,
	}

	if err := a.db.CreateTarget(target); err != nil {
		return fmt.Errorf("failed to create target: %w", err)
	}

	fmt.Printf("Target created successfully (ID: %d)\n", target.ID)
	return nil
}

func runList(cmd *cobra.Command, a *app, args []string) error {
	targets, err := a.db.ListTargets()
	if err != nil {
		return fmt.Errorf("failed to list targets: %w", err)
	}

	if len(targets) == 0 {
		fmt.Println("No targets configured")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tURL\tSTATUS\tALERT\tENABLED")
	for _, t := range targets {
		enabled := "No"
		if t.Enabled {
			enabled = "Yes"
		}
		fmt.Fprintf(w, "%d\t%s\t%s %s\t%s\t%s\t%s\n", t.ID, t.Name, t.Method, t.URL, t.CurrentStatus, t.Policy(), enabled)
	}
	return w.Flush()
}

func runRemove(cmd *cobra.Command, a *app, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}

	if err := a.db.DeleteTarget(id); err != nil {
		return fmt.Errorf("failed to remove target: %w", err)
	}

	fmt.Printf("Target %d removed successfully\n", id)
	return nil
}

func runCheck(cmd *cobra.Command, a *app, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}

	target, err := a.db.GetTarget(id)
	if err != nil {
		return fmt.Errorf("failed to load target: %w", err)
	}

	ctx, cancel := signalContext()
	defer cancel()
	ctx, cancelTimeout := context.WithTimeout(ctx, time.Duration(target.Timeout)*time.Second+30*time.Second)
	defer cancelTimeout()

	result, err := a.engine().CheckNow(ctx, target)
	if err != nil {
		return fmt.Errorf("check failed: %w", err)
	}

	fmt.Printf("%s: %s\n", target.Name, result.Status)
	if result.StatusCode > 0 {
		fmt.Printf("  HTTP %d in %dms\n", result.StatusCode, result.ResponseTime)
	} else {
		fmt.Printf("  no response after %dms\n", result.ResponseTime)
	}
	if result.TLSValid != nil {
		fmt.Printf("  TLS valid: %t", *result.TLSValid)
		if result.TLSDaysRemaining != nil {
			fmt.Printf(" (%d days left, issuer %s)", *result.TLSDaysRemaining, result.TLSIssuer)
		}
		fmt.Println()
	}
	if result.DNSValid != nil {
		fmt.Printf("  DNS valid: %t\n", *result.DNSValid)
	}
	if result.Error != "" {
		fmt.Printf("  %s\n", result.Error)
	}
	return nil
}

func runStats(cmd *cobra.Command, a *app, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}

	target, err := a.db.GetTarget(id)
	if err != nil {
		return fmt.Errorf("failed to load target: %w", err)
	}

	log, err := a.engine().AggregateDowntime(id)
	if err != nil {
		return err
	}

	printDowntime(target, log)
	return nil
}

func printDowntime(t *storage.Target, log downtime.Log) {
	fmt.Printf("%s (%s)\n", t.Name, t.URL)
	fmt.Printf("Uptime:     %.3f%%\n", log.UptimePercent)
	fmt.Printf("Incidents:  %d (%d resolved)\n", log.TotalIncidents, log.ResolvedIncidents)
	fmt.Printf("Downtime:   %s\n", secondsString(log.TotalDowntimeSeconds))
	if log.ResolvedIncidents > 0 {
		fmt.Printf("Average:    %s\n", secondsString(log.AverageSeconds))
		fmt.Printf("Longest:    %s\n", secondsString(log.LongestSeconds))
		fmt.Printf("Shortest:   %s\n", secondsString(log.ShortestSeconds))
	}
	if log.OpenIncident != nil {
		fmt.Printf("Ongoing:    %s since %s\n",
			secondsString(log.OpenDurationSeconds),
			log.OpenIncident.StartedAt.Local().Format(time.RFC1123))
	}
	for _, w := range log.Windows {
		fmt.Printf("Last %-4s   %d incidents, %s down\n", w.Label+":", w.Incidents, secondsString(w.DowntimeSeconds))
	}
}

func runIncidents(cmd *cobra.Command, a *app, args []string) error {
	var id uint
	if len(args) == 1 {
		var err error
		if id, err = parseID(args[0]); err != nil {
			return err
		}
	}

	incidents, err := a.db.ListIncidents(id, incidentsLimit)
	if err != nil {
		return fmt.Errorf("failed to list incidents: %w", err)
	}
	if len(incidents) == 0 {
		fmt.Println("No incidents recorded")
		return nil
	}

	now := time.Now()
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTARGET\tSTARTED\tDURATION\tSTATE\tERROR")
	for _, inc := range incidents {
		state := "resolved"
		if !inc.IsResolved() {
			state = "ongoing"
		}
		fmt.Fprintf(w, "%d\t%d\t%s\t%s\t%s\t%s\n",
			inc.ID, inc.TargetID,
			inc.StartedAt.Local().Format("2006-01-02 15:04:05"),
			inc.Duration(now).Round(time.Second),
			state, inc.ErrorMessage)
	}
	return w.Flush()
}

func secondsString(s int64) string {
	return (time.Duration(s) * time.Second).String()
}
