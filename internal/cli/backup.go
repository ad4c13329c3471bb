package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rcliao/munger/internal/backup"
)

func init() {
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Copy your data to S3-compatible storage",
		Long: `Copy the database and wisdom store to S3-compatible object storage (MinIO,
S3, Ceph...). Configure backup.endpoint, backup.access_key, backup.secret_key
and backup.bucket in config.yaml or MUNGER_BACKUP_* variables.`,
	}

	push := &cobra.Command{
		Use:   "push",
		Short: "Upload a new snapshot",
		Run:   runBackupPush,
	}
	pull := &cobra.Command{
		Use:   "pull [stamp]",
		Short: "Restore a snapshot (default: the latest)",
		Args:  cobra.MaximumNArgs(1),
		Run:   runBackupPull,
	}
	list := &cobra.Command{
		Use:   "list",
		Short: "List snapshots",
		Run:   runBackupList,
	}

	cmd.AddCommand(push, pull, list)
	RootCmd.AddCommand(cmd)
}

func newBackupClient() *backup.Client {
	b := cfg.Backup
	c, err := backup.New(backup.Config{
		Endpoint:  b.Endpoint,
		AccessKey: b.AccessKey,
		SecretKey: b.SecretKey,
		Bucket:    b.Bucket,
		Prefix:    b.Prefix,
		UseSSL:    b.UseSSL,
	}, cfg.DBName, logger)
	if err != nil {
		exitErr("backup", err)
	}
	return c
}

func runBackupPush(cmd *cobra.Command, args []string) {
	c := newBackupClient()

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	stamp, err := c.Push(cmd.Context(), cfg.DataDir, s)
	if err != nil {
		exitErr("backup push", err)
	}
	if jsonOutput() {
		fmt.Printf(`{"ok":true,"stamp":%q}`+"\n", stamp)
		return
	}
	fmt.Printf("Pushed snapshot %s to %s.\n", stamp, cfg.Backup.Bucket)
}

func runBackupPull(cmd *cobra.Command, args []string) {
	c := newBackupClient()
	var stamp string
	if len(args) > 0 {
		stamp = args[0]
	}
	got, err := c.Pull(cmd.Context(), cfg.DataDir, stamp)
	if err != nil {
		exitErr("backup pull", err)
	}
	if jsonOutput() {
		fmt.Printf(`{"ok":true,"stamp":%q}`+"\n", got)
		return
	}
	fmt.Printf("Restored snapshot %s into %s.\n", got, cfg.DataDir)
}

func runBackupList(cmd *cobra.Command, args []string) {
	stamps, err := newBackupClient().List(cmd.Context())
	if err != nil {
		exitErr("backup list", err)
	}
	if jsonOutput() {
		if stamps == nil {
			stamps = []string{}
		}
		printJSON(stamps)
		return
	}
	if len(stamps) == 0 {
		fmt.Println("No snapshots.")
		return
	}
	for _, s := range stamps {
		fmt.Println(s)
	}
}
