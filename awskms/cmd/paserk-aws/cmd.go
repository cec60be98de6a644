package main

import (
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"log"
	"strings"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/kms"
	"github.com/go-logr/logr"
	"github.com/go-logr/stdr"
	"github.com/spf13/cobra"

	paserk "github.com/rbaliyan/paserk-kms"
	"github.com/rbaliyan/paserk-kms/awskms"
)

type rootFlags struct {
	configPath string
	keyID      string
	version    string
	profile    string
	region     string
	contexts   []string
	verbosity  int
}

// clientFactory builds the KMS client; tests replace it.
type clientFactory func(ctx context.Context, f *rootFlags) (awskms.Client, error)

func defaultClient(ctx context.Context, f *rootFlags) (awskms.Client, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if f.profile != "" {
		opts = append(opts, awsconfig.WithSharedConfigProfile(f.profile))
	}
	if f.region != "" {
		opts = append(opts, awsconfig.WithRegion(f.region))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}
	return kms.NewFromConfig(cfg), nil
}

func newRootCmd() *cobra.Command {
	return newRootCmdWith(defaultClient)
}

func newRootCmdWith(newClient clientFactory) *cobra.Command {
	f := &rootFlags{}
	cmd := &cobra.Command{
		Use:           "paserk-aws",
		Short:         "Wrap and unwrap PASERK keys with AWS KMS",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	pf := cmd.PersistentFlags()
	pf.StringVar(&f.configPath, "config", "", "TOML config file (version, key_id, encryption_context)")
	pf.StringVar(&f.keyID, "key-id", "", "KMS key ID, ARN or alias (overrides config)")
	pf.StringVar(&f.version, "version", "", "PASETO version, v3 or v4 (overrides config)")
	pf.StringVar(&f.profile, "profile", "", "AWS shared config profile")
	pf.StringVar(&f.region, "region", "", "AWS region")
	pf.StringArrayVar(&f.contexts, "context", nil, "extra encryption context entry key=value (repeatable)")
	pf.IntVarP(&f.verbosity, "verbose", "v", 0, "log verbosity")

	cmd.AddCommand(newWrapCmd(f, newClient), newUnwrapCmd(f, newClient))
	return cmd
}

// resolveConfig merges the config file with flag overrides and validates the result.
func (f *rootFlags) resolveConfig() (paserk.Config, error) {
	var cfg paserk.Config
	if f.configPath != "" {
		loaded, err := paserk.ReadConfig(f.configPath)
		if err != nil {
			return paserk.Config{}, err
		}
		cfg = loaded
	}
	if f.keyID != "" {
		cfg.KeyID = f.keyID
	}
	if f.version != "" {
		cfg.Version = f.version
	}
	if cfg.Version == "" {
		cfg.Version = paserk.DefaultVersion
	}
	for _, kv := range f.contexts {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || k == "" {
			return paserk.Config{}, fmt.Errorf("invalid --context %q, want key=value", kv)
		}
		if cfg.EncryptionContext == nil {
			cfg.EncryptionContext = map[string]string{}
		}
		cfg.EncryptionContext[k] = v
	}
	return cfg, cfg.Validate()
}

func (f *rootFlags) logger(w io.Writer) logr.Logger {
	stdr.SetVerbosity(f.verbosity)
	return stdr.New(log.New(w, "paserk-aws ", log.LstdFlags))
}

func (f *rootFlags) wrapper(cmd *cobra.Command, newClient clientFactory) (*paserk.Wrapper, error) {
	cfg, err := f.resolveConfig()
	if err != nil {
		return nil, err
	}
	client, err := newClient(cmd.Context(), f)
	if err != nil {
		return nil, err
	}
	return awskms.NewFromConfig(client, cfg, paserk.WithLogger(f.logger(cmd.ErrOrStderr())))
}

func newWrapCmd(f *rootFlags, newClient clientFactory) *cobra.Command {
	var purpose, keyHex string
	cmd := &cobra.Command{
		Use:   "wrap",
		Short: "Wrap a hex-encoded key and print the token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			w, err := f.wrapper(cmd, newClient)
			if err != nil {
				return err
			}
			raw, err := hex.DecodeString(strings.TrimSpace(keyHex))
			if err != nil {
				return fmt.Errorf("decode --key-hex: %w", err)
			}
			defer clear(raw)

			var key paserk.Key
			switch paserk.Purpose(purpose) {
			case paserk.PurposeLocal:
				key, err = paserk.NewSymmetricKey(raw, w.Version())
			case paserk.PurposeSecret:
				key, err = paserk.NewAsymmetricSecretKey(raw, w.Version())
			default:
				return fmt.Errorf("invalid --purpose %q, want local or secret", purpose)
			}
			if err != nil {
				return err
			}

			token, err := w.Wrap(cmd.Context(), key)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&purpose, "purpose", string(paserk.PurposeLocal), "key purpose: local or secret")
	cmd.Flags().StringVar(&keyHex, "key-hex", "", "raw key bytes, hex encoded")
	_ = cmd.MarkFlagRequired("key-hex")
	return cmd
}

func newUnwrapCmd(f *rootFlags, newClient clientFactory) *cobra.Command {
	return &cobra.Command{
		Use:   "unwrap TOKEN",
		Short: "Unwrap a token and print the purpose and hex-encoded key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := f.wrapper(cmd, newClient)
			if err != nil {
				return err
			}
			key, err := w.UnwrapKey(cmd.Context(), strings.TrimSpace(args[0]))
			if err != nil {
				return err
			}
			raw := key.Raw()
			defer clear(raw)
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", key.Purpose(), hex.EncodeToString(raw))
			return nil
		},
	}
}
