package cmd

import (
	"bytes"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/iksnae/smile-viewer/internal/stub"
	"github.com/iksnae/smile-viewer/testutil"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// startStub serves a stub seeded with testutil.SampleSnapshots and returns its URL
func startStub(t *testing.T, cfg stub.Config) (*stub.Server, string) {
	t.Helper()
	store, err := stub.NewStore(testutil.CreateTestDB(t))
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	if cfg.CaptureInterval == 0 {
		cfg.CaptureInterval = time.Hour
	}
	service := stub.New(store, cfg)
	srv := httptest.NewServer(service)
	t.Cleanup(func() {
		service.Close()
		srv.Close()
	})
	return service, srv.URL
}

// resetFlags restores the value and Changed state of every flag on c and its
// subcommands
func resetFlags(t *testing.T, c *cobra.Command) {
	t.Helper()
	reset := func(f *pflag.Flag) {
		if err := f.Value.Set(f.DefValue); err != nil {
			t.Fatalf("reset --%s: %v", f.Name, err)
		}
		f.Changed = false
	}
	c.PersistentFlags().VisitAll(reset)
	c.Flags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(t, sub)
	}
}

// runCommand executes rootCmd with args under a fresh home directory and
// returns what it wrote to stdout
func runCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	return runCommandIn(t, t.TempDir(), args...)
}

// runCommandIn is runCommand with a fixed home. Every flag is put back to its
// default first because cobra and pflag keep values between runs.
func runCommandIn(t *testing.T, home string, args ...string) (string, error) {
	t.Helper()
	t.Setenv("HOME", home)
	resetFlags(t, rootCmd)

	var stdout, stderr bytes.Buffer
	rootCmd.SetArgs(args)
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)

	err := rootCmd.Execute()
	return stdout.String(), err
}
