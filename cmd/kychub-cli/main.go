package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/ethereum/go-ethereum/common"
	"github.com/getAlby/kychub.go/db/models"
	"github.com/getAlby/kychub.go/lib"
	"github.com/getAlby/kychub.go/lib/commitment"
	"github.com/getAlby/kychub.go/lib/tokens"
	"github.com/getAlby/kychub.go/lib/zkp"
	"github.com/getAlby/kychub.go/rabbitmq"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"
	"github.com/ziflex/lecho/v3"
)

// client side helpers: commitments are computed here, never by the server
func main() {
	// flags fall back to the server's environment
	_ = godotenv.Load(".env")

	if err := newApp(os.Stdout).Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newApp(out io.Writer) *cli.App {
	var logger zerolog.Logger
	var closer io.Closer
	return &cli.App{
		Name:      "kychub-cli",
		Usage:     "build KYC commitments and proofs for kychub",
		Writer:    out,
		ErrWriter: os.Stderr,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "log-file", EnvVars: []string{"LOG_FILE_PATH"}},
			&cli.StringFlag{Name: "log-level", Value: "info", EnvVars: []string{"LOG_LEVEL"}},
		},
		Before: func(c *cli.Context) error {
			level, err := zerolog.ParseLevel(c.String("log-level"))
			if err != nil {
				return err
			}
			logger, closer, err = lib.Logger(c.String("log-file"), level)
			return err
		},
		After: func(c *cli.Context) error {
			if closer != nil {
				return closer.Close()
			}
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:  "salt",
				Usage: "print a random salt",
				Action: func(c *cli.Context) error {
					salt, err := commitment.NewSalt()
					if err != nil {
						return err
					}
					fmt.Fprintln(c.App.Writer, commitment.FromElement(salt).Hex())
					return nil
				},
			},
			{
				Name:  "commit",
				Usage: "compute the commitment of identity attributes",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "first-name", Required: true},
					&cli.StringFlag{Name: "last-name", Required: true},
					&cli.TimestampFlag{Name: "dob", Usage: "date of birth", Layout: time.DateOnly, Required: true},
					&cli.StringFlag{Name: "country", Usage: "ISO 3166-1 alpha-2 code", Required: true},
					&cli.StringFlag{Name: "document", Required: true},
					&cli.StringFlag{Name: "salt", Usage: "reuse a salt instead of drawing a new one"},
				},
				Action: func(c *cli.Context) error {
					attrs := commitment.Attributes{
						FirstName:      c.String("first-name"),
						LastName:       c.String("last-name"),
						DateOfBirth:    c.Timestamp("dob").Unix(),
						CountryCode:    commitment.CountryCode(c.String("country")),
						DocumentNumber: c.String("document"),
					}
					if attrs.CountryCode == 0 {
						return fmt.Errorf("unsupported country %q", c.String("country"))
					}
					salt, err := saltFlag(c.String("salt"))
					if err != nil {
						return err
					}
					commit := commitment.Commit(attrs, salt)
					logger.Debug().Str("protocol", commitment.Protocol).Msg("computed commitment")
					return printJSON(c.App.Writer, map[string]string{
						"commitment": commit.Hex(),
						"decimal":    commit.BigInt().String(),
						"salt":       commitment.FromElement(salt).Hex(),
					})
				},
			},
			{
				Name:  "format-proof",
				Usage: "convert a snarkjs proof.json into the proof array of the verify request",
				Flags: []cli.Flag{
					&cli.PathFlag{Name: "proof", Value: "proof.json"},
				},
				Action: func(c *cli.Context) error {
					data, err := os.ReadFile(c.Path("proof"))
					if err != nil {
						return err
					}
					var raw zkp.SnarkJSProof
					if err := json.Unmarshal(data, &raw); err != nil {
						return fmt.Errorf("decoding %s: %w", c.Path("proof"), err)
					}
					if raw.Protocol != "" && raw.Protocol != "groth16" {
						logger.Warn().Str("protocol", raw.Protocol).Msg("proof is not a groth16 proof")
					}
					proof, err := raw.Calldata()
					if err != nil {
						return err
					}
					return printJSON(c.App.Writer, proof.Strings())
				},
			},
			{
				Name:  "token",
				Usage: "mint a bearer token for an address",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "address", Required: true},
					&cli.StringFlag{Name: "secret", EnvVars: []string{"JWT_SECRET"}, Required: true},
					&cli.IntFlag{Name: "expiry", Usage: "seconds", Value: 3600},
				},
				Action: func(c *cli.Context) error {
					if !common.IsHexAddress(c.String("address")) {
						return fmt.Errorf("invalid address %q", c.String("address"))
					}
					address := common.HexToAddress(c.String("address"))
					token, err := tokens.GenerateAccessToken([]byte(c.String("secret")), c.Int("expiry"), address)
					if err != nil {
						return err
					}
					logger.Info().Str("address", address.Hex()).Int("expiry", c.Int("expiry")).Msg("minted token")
					fmt.Fprintln(c.App.Writer, token)
					return nil
				},
			},
			{
				Name:  "events",
				Usage: "print events published to rabbitmq until interrupted",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "uri", EnvVars: []string{"RABBITMQ_URI"}, Required: true},
					&cli.StringFlag{Name: "exchange", EnvVars: []string{"RABBITMQ_EVENT_EXCHANGE"}, Value: rabbitmq.DefaultEventExchange},
					&cli.StringFlag{Name: "routing-key", Value: "#", Usage: "e.g. invoice.* or kyc.verified"},
					&cli.StringFlag{Name: "queue", Value: "kychub_cli"},
				},
				Action: func(c *cli.Context) error {
					client, err := rabbitmq.Dial(c.String("uri"),
						rabbitmq.WithEventExchange(c.String("exchange")),
						rabbitmq.WithLogger(lecho.From(logger)),
					)
					if err != nil {
						return err
					}
					defer client.Close()

					ctx, stop := signal.NotifyContext(c.Context, os.Interrupt)
					defer stop()
					err = client.ConsumeEvents(ctx, c.String("routing-key"), c.String("queue"), func(_ context.Context, event *models.Event) error {
						logger.Debug().Str("id", event.ID.String()).Str("type", event.Type).Msg("received event")
						return printJSON(c.App.Writer, event)
					})
					if ctx.Err() != nil {
						return nil
					}
					return err
				},
			},
		},
	}
}

func saltFlag(value string) (fr.Element, error) {
	if value == "" {
		return commitment.NewSalt()
	}
	return commitment.ParseSalt(value)
}

func printJSON(out io.Writer, v interface{}) error {
	encoder := json.NewEncoder(out)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}
