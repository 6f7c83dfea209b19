package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/fujinet/macserial/conf"
)

const defaultListen = "127.0.0.1:6400"

func main() {
	var configPath string

	root := &cobra.Command{
		Use:   "macserial",
		Short: "Emulated floppy block server with a FujiNet serial channel",
		Long: "macserial serves emulated floppy drives over TCP and gives the\n" +
			"FujiNet serial bridge first dibs on every sector transfer, so a\n" +
			"cooperating host driver can tunnel command traffic through\n" +
			"ordinary-looking disk I/O.",
	}

	serve := &cobra.Command{
		Use:   "serve",
		Short: "Serve the configured drives over TCP",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(configPath)
		},
	}
	serve.Flags().StringVarP(&configPath, "config", "c", "macserial.json", "configuration file")

	root.AddCommand(serve)
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runServe(configPath string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := conf.Load(configPath)
	if err != nil {
		return err
	}

	srv, cleanup, err := cfg.Build(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	listen := cfg.Listen
	if listen == "" {
		listen = defaultListen
	}
	ln, err := net.Listen("tcp", listen)
	if err != nil {
		return err
	}
	go func() {
		<-ctx.Done()
		_ = ln.Close()
	}()

	fmt.Println("macserial: listening on", ln.Addr())
	err = srv.Serve(ln)
	if ctx.Err() != nil {
		return nil
	}
	return err
}
