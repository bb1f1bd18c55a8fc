package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"parkwatch/lib/booking"
	"parkwatch/lib/configutil"
	"parkwatch/lib/extract"
	"parkwatch/lib/extract/api"
	"parkwatch/lib/extract/dom"
	"parkwatch/lib/notify"
	"parkwatch/lib/retry"
	"parkwatch/lib/serviceutil"
	"parkwatch/lib/telemetry"
	"parkwatch/services/watcher"

	"github.com/spf13/cobra"
)

var (
	urlFlag      string
	intervalFlag int
	filterFlag   string
	strategyFlag string
	verboseFlag  bool
	noSandbox    bool

	smsFlag     bool
	twilioSID   string
	twilioToken string
	twilioFrom  string
	smsTo       string
)

func init() {
	flags := rootCmd.Flags()
	flags.StringVar(&urlFlag, "url", "", "The booking map URL to poll.")
	flags.IntVar(&intervalFlag, "interval", 60, "Seconds to sleep between poll cycles.")
	flags.StringVar(&filterFlag, "filter", "", "Comma-separated site names or ids to watch. Empty watches everything.")
	flags.StringVar(&strategyFlag, "strategy", "dom", "Extraction strategy: dom (headless browser) or api (availability endpoints).")
	flags.BoolVar(&verboseFlag, "verbose", false, "Debug logging and a per-cycle site table.")
	flags.BoolVar(&noSandbox, "no-sandbox", false, "Launch the browser without a sandbox (containers).")

	flags.BoolVar(&smsFlag, "sms", false, "Send an SMS when watched sites become available.")
	flags.StringVar(&twilioSID, "twilio-sid", "", "Twilio account SID.")
	flags.StringVar(&twilioToken, "twilio-token", "", "Twilio auth token.")
	flags.StringVar(&twilioFrom, "twilio-from", "", "Sending phone number.")
	flags.StringVar(&smsTo, "to", "", "Receiving phone number.")

	rootCmd.MarkFlagRequired("url")
}

// notifyConfig is the optional notify.json5 file; currently it only
// carries SMTP settings.
type notifyConfig struct {
	Email *notify.EmailConfig `json:"email"`
}

var rootCmd = &cobra.Command{
	Use:   "parkwatch --url <booking-url> [flags]",
	Short: "parkwatch polls a campsite booking map and reports availability.",
	Run: func(cmd *cobra.Command, args []string) {
		telemetry.InitSlog(verboseFlag)

		ctx := cmd.Context()
		t, err := telemetry.SetupFromEnv(ctx, "parkwatch")
		if err != nil {
			serviceutil.Fatal("failed to setup telemetry", err)
		}
		defer t.Shutdown(context.Background())
		telemetry.InstrumentPerfStats(ctx)

		strategy, err := newStrategy()
		if err != nil {
			serviceutil.Fatal("failed to start extraction session", err)
		}
		notifier, err := newNotifier()
		if err != nil {
			strategy.Close()
			serviceutil.Fatal("failed to configure notifications", err)
		}

		svc := watcher.New(
			strategy,
			booking.ParseWatchlist(filterFlag),
			notifier,
			watcher.NewReporter(os.Stdout, verboseFlag),
			watcher.Config{
				Interval: time.Duration(intervalFlag) * time.Second,
				Retry:    retry.DefaultConfig(),
			},
		)

		err = svc.Run(ctx)
		if err != nil && !errors.Is(err, context.Canceled) {
			serviceutil.Fatal("poll loop died", err)
		}
		slog.Info("stopped")
	},
}

func newStrategy() (extract.Strategy, error) {
	switch strategyFlag {
	case "dom":
		return dom.New(urlFlag, dom.Options{NoSandbox: noSandbox})
	case "api":
		return api.New(urlFlag)
	default:
		return nil, fmt.Errorf("unknown strategy %q, want dom or api", strategyFlag)
	}
}

// newNotifier assembles the configured channels. A nil notifier is
// valid: reports still print, nothing gets delivered.
func newNotifier() (notify.Notifier, error) {
	var notifiers []notify.Notifier

	if smsFlag {
		if twilioSID == "" || twilioToken == "" || twilioFrom == "" || smsTo == "" {
			return nil, errors.New("--sms requires --twilio-sid, --twilio-token, --twilio-from and --to")
		}
		notifiers = append(notifiers, notify.NewSMS(notify.SMSConfig{
			AccountSID: twilioSID,
			AuthToken:  twilioToken,
			From:       twilioFrom,
			To:         smsTo,
		}, urlFlag))
	}

	cfg, found, err := configutil.ReadOptional[notifyConfig]("notify.json5")
	if err != nil {
		return nil, fmt.Errorf("read notify.json5: %w", err)
	}
	if found && cfg.Email != nil {
		notifiers = append(notifiers, notify.NewEmail(*cfg.Email, urlFlag))
	}

	if len(notifiers) == 0 {
		return nil, nil
	}
	return notify.NewMulti(notifiers...), nil
}

func ExecuteContext(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
