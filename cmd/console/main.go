// Command fleet-console is the operator console for the delivery fleet.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/fleet-console/internal/api"
	"github.com/ukydev/fleet-console/internal/auth"
	"github.com/ukydev/fleet-console/internal/config"
	"github.com/ukydev/fleet-console/internal/directions"
	"github.com/ukydev/fleet-console/internal/geocode"
	"github.com/ukydev/fleet-console/internal/notify"
	"github.com/ukydev/fleet-console/internal/store"
	"github.com/ukydev/fleet-console/internal/upload"
)

const usage = `Usage: fleet-console <command> [arguments]

Commands:
  login [-email address]          log in as an administrator
  logout                          end the session
  whoami                          show the logged-in user
  vehicles list [-q plate] [-type type]
  vehicles add                    register a vehicle
  vehicles edit <id>              edit a vehicle
  vehicles delete [-yes] <id>     delete a vehicle
  vehicles report [-q plate] [-type type] [-o file]
  routes list [-q text]
  routes add                      create a delivery route
  routes map                      show routes with driving distance and time
  serve                           serve the route map and reports over HTTP
`

var errUsage = errors.New("invalid usage")

// app holds the wired console for one command invocation.
type app struct {
	cfg      *config.Config
	session  *auth.Session
	client   *api.Client
	vehicles *api.VehicleAPI
	routes   *api.RouteAPI
	auth     *api.AuthAPI
	uploader upload.Store
	prompt   *prompter
	out      io.Writer
	closers  []func()
}

func newApp(ctx context.Context, cfg *config.Config, in io.Reader, out io.Writer) (*app, error) {
	session, err := auth.NewSession(store.NewFileSessionStore(cfg.API.SessionFile))
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, session: session, prompt: newPrompter(in, out), out: out}

	notifiers := notify.Multi{notify.NewLogNotifier()}
	if cfg.MQTT.Enabled() {
		mq, err := notify.NewMQTTNotifier(cfg.MQTT.Broker, cfg.MQTT.ClientID, cfg.MQTT.Topic)
		if err != nil {
			log.WithError(err).Warn("MQTT notifications disabled")
		} else {
			notifiers = append(notifiers, mq)
			a.closers = append(a.closers, mq.Close)
		}
	}

	client, err := api.NewClient(session, api.Options{
		BaseURL:       cfg.API.BaseURL,
		Timeout:       cfg.API.Timeout,
		SessionCookie: cfg.API.SessionCookie,
		RedirectDelay: cfg.API.RedirectDelay,
		Notifier:      notifiers,
		Navigator: api.NavigatorFunc(func(path string) {
			fmt.Fprintf(out, "Your session has ended. Run `fleet-console login` to continue (login page: %s).\n", path)
		}),
		// the process exits right after the failing command, so redirect now
		AfterFunc: func(_ time.Duration, f func()) { f() },
	})
	if err != nil {
		return nil, err
	}
	a.client = client
	a.vehicles = api.NewVehicleAPI(client)
	a.routes = api.NewRouteAPI(client)
	a.auth = api.NewAuthAPI(client)

	if cfg.Firebase.Enabled() {
		fs, err := upload.NewFirebaseStore(ctx, upload.FirebaseConfig{
			ProjectID:       cfg.Firebase.ProjectID,
			Bucket:          cfg.Firebase.Bucket,
			CredentialsPath: cfg.Firebase.CredentialsPath,
			Prefix:          cfg.Firebase.UploadPrefix,
		})
		if err != nil {
			log.WithError(err).Warn("Photo uploads disabled")
		} else {
			a.uploader = fs
		}
	}
	return a, nil
}

func (a *app) close() {
	for _, c := range a.closers {
		c()
	}
}

func (a *app) geocoder() geocode.Geocoder {
	return geocode.NewClient(a.cfg.Geo.ORSBaseURL, a.cfg.Geo.ORSAPIKey, a.cfg.API.Timeout)
}

func (a *app) directionsProvider() directions.Provider {
	if a.cfg.Geo.Provider == config.ProviderOSRM {
		return directions.NewOSRMProvider(a.cfg.Geo.OSRMBaseURL, a.cfg.API.Timeout)
	}
	return directions.NewORSProvider(a.cfg.Geo.ORSBaseURL, a.cfg.Geo.ORSAPIKey, a.cfg.API.Timeout)
}

// requireLogin fails before any request when nobody is logged in.
func (a *app) requireLogin() error {
	if _, err := a.session.Require(time.Now()); err != nil {
		return fmt.Errorf("%w: run `fleet-console login` first", err)
	}
	return nil
}

func run(ctx context.Context, args []string, in io.Reader, out io.Writer) error {
	if len(args) == 0 {
		fmt.Fprint(out, usage)
		return errUsage
	}

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	cfg.ConfigureLogging()

	a, err := newApp(ctx, cfg, in, out)
	if err != nil {
		return err
	}
	defer a.close()

	cmd, rest := args[0], args[1:]
	switch cmd {
	case "login":
		return a.login(ctx, rest)
	case "logout":
		return a.logout(ctx)
	case "whoami":
		return a.whoami()
	case "vehicles":
		return a.vehiclesCommand(ctx, rest)
	case "routes":
		return a.routesCommand(ctx, rest)
	case "serve":
		return a.serve(ctx)
	case "help", "-h", "--help":
		fmt.Fprint(out, usage)
		return nil
	default:
		fmt.Fprintf(out, "unknown command %q\n\n%s", cmd, usage)
		return errUsage
	}
}

func newFlagSet(name string, out io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(out)
	return fs
}

func main() {
	if err := config.LoadDotEnv(); err != nil {
		log.WithError(err).Warn("Ignoring .env file")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdin, os.Stdout); err != nil {
		if !errors.Is(err, errUsage) {
			log.WithError(err).Error("Command failed")
		}
		stop()
		os.Exit(1)
	}
}
