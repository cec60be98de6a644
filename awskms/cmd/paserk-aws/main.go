// Command paserk-aws wraps and unwraps PASERK keys with AWS KMS.
//
//	paserk-aws --config paserk.toml wrap --purpose local --key-hex 3131...
//	paserk-aws --config paserk.toml unwrap v4.local-wrap.aws-kms.AQID...
//
// Credentials come from the default AWS chain (environment, shared config, IMDS).
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		stop()
		os.Exit(1)
	}
}
