// Package commands implements the lattice CLI.
package commands

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jacentio/lattice/internal/awsclient"
	"github.com/jacentio/lattice/kv"
	"github.com/jacentio/lattice/relation"
)

// Execute runs the lattice CLI.
func Execute() error {
	return NewRootCommand().Execute()
}

// NewRootCommand builds the command tree. Each call gets its own
// configuration, so commands can be executed repeatedly in one process.
func NewRootCommand() *cobra.Command {
	a := &app{v: viper.New()}

	root := &cobra.Command{
		Use:   "lattice",
		Short: "Bidirectional relation index over an ordered key-value store",
		Long: `lattice maintains directed relations between typed entities.

Entities are written as type#id (e.g. user#u1). Every type mentioned on the
command line is registered automatically; list other target types with --types.

Examples:
  lattice put user#u1 follows tag#t1
  lattice list user#u1 follows --limit 10
  lattice link user#u1 follows tag#t1 followers
  lattice --store dynamodb --table relations init-table`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	f := root.PersistentFlags()
	f.String("config", "", "config file (default $HOME/.lattice.yaml)")
	f.String("store", "badger", "store backend: memory, badger or dynamodb")
	f.String("dir", "lattice-data", "badger data directory")
	f.String("table", kv.DefaultDynamoConfig().Table, "DynamoDB table name")
	f.String("endpoint", "", "DynamoDB endpoint override (e.g. http://localhost:8000)")
	f.String("region", "", "AWS region")
	f.String("profile", "", "AWS shared config profile")
	f.String("root", relation.DefaultConfig().Root, "key prefix of every relation key")
	f.String("codec", "json", "record codec: json or msgpack")
	f.StringSlice("types", nil, "additional entity types to register (comma-separated)")
	f.Bool("json", false, "print results as JSON instead of YAML")
	f.BoolP("verbose", "v", false, "enable debug logging")
	_ = a.v.BindPFlags(f)

	a.v.SetEnvPrefix("lattice")
	a.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	a.v.AutomaticEnv()

	root.AddCommand(
		newPutCmd(a),
		newDelCmd(a),
		newHasCmd(a),
		newCountCmd(a),
		newListCmd(a),
		newToggleCmd(a),
		newLinkCmd(a),
		newUnlinkCmd(a),
		newLinkedCmd(a),
		newInitTableCmd(a),
	)
	return root
}

// app holds the state of one command execution.
type app struct {
	v      *viper.Viper
	logger *slog.Logger
	store  kv.Store
	dynamo *kv.Dynamo
}

// run wraps a command body: it loads the configuration, opens the store and
// closes it again on every exit path.
func (a *app) run(fn func(cmd *cobra.Command, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) (err error) {
		if err := a.open(cmd); err != nil {
			return err
		}
		defer func() {
			if cerr := a.close(); err == nil {
				err = cerr
			}
		}()
		return fn(cmd, args)
	}
}

func (a *app) open(cmd *cobra.Command) error {
	if err := a.readConfig(); err != nil {
		return err
	}

	level := slog.LevelWarn
	if a.v.GetBool("verbose") {
		level = slog.LevelDebug
	}
	a.logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))

	switch backend := a.v.GetString("store"); backend {
	case "memory":
		a.store = kv.NewMemory()
	case "badger":
		db, err := kv.NewBadger(kv.BadgerOptions{Dir: a.v.GetString("dir"), Logger: a.logger})
		if err != nil {
			return err
		}
		a.store = db
	case "dynamodb":
		client, err := awsclient.DynamoDB(cmd.Context(), awsclient.Options{
			Region:   a.v.GetString("region"),
			Profile:  a.v.GetString("profile"),
			Endpoint: a.v.GetString("endpoint"),
		})
		if err != nil {
			return err
		}
		a.dynamo = kv.NewDynamo(client, kv.DynamoConfig{Table: a.v.GetString("table")})
		a.store = a.dynamo
	default:
		return fmt.Errorf("unknown store %q (want memory, badger or dynamodb)", backend)
	}

	a.logger.Debug("store opened", "store", a.v.GetString("store"))
	return nil
}

// readConfig loads --config, or $HOME/.lattice.yaml when it exists.
func (a *app) readConfig() error {
	path := a.v.GetString("config")
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil
		}
		path = filepath.Join(home, ".lattice.yaml")
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			return nil
		}
	}
	a.v.SetConfigFile(path)
	if err := a.v.ReadInConfig(); err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	return nil
}

func (a *app) close() error {
	if a.store == nil {
		return nil
	}
	err := a.store.Close()
	a.store, a.dynamo = nil, nil
	return err
}

// graph builds a Graph with every type in --types and refs registered.
func (a *app) graph(refs ...relation.Ref) (*relation.Graph, error) {
	codec, err := relation.CodecByName(a.v.GetString("codec"))
	if err != nil {
		return nil, err
	}

	reg := relation.NewRegistry()
	for _, typ := range a.v.GetStringSlice("types") {
		reg.Register(typ, relation.RefLoader(typ))
	}
	for _, ref := range refs {
		reg.Register(ref.Type, relation.RefLoader(ref.Type))
	}

	cfg := relation.DefaultConfig()
	cfg.Root = a.v.GetString("root")
	cfg.Codec = codec
	cfg.Logger = a.logger
	return relation.New(a.store, reg, cfg), nil
}

func (a *app) output(cmd *cobra.Command) io.Writer {
	return cmd.OutOrStdout()
}
