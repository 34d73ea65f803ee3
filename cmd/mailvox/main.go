package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/kokistudios/mailvox/internal/contacts"
	"github.com/kokistudios/mailvox/internal/dialog"
	"github.com/kokistudios/mailvox/internal/intent"
	"github.com/kokistudios/mailvox/internal/mail/gmail"
	mailvoxmcp "github.com/kokistudios/mailvox/internal/mcp"
	"github.com/kokistudios/mailvox/internal/metrics"
	"github.com/kokistudios/mailvox/internal/store"
	"github.com/kokistudios/mailvox/internal/ui"
)

// Set via ldflags at build time
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func buildVersion() string {
	if commit == "none" {
		return version
	}
	return fmt.Sprintf("%s (%s, %s)", version, commit, date)
}

func main() {
	var noColor, verbose bool

	rootCmd := &cobra.Command{
		Use:           "mailvox",
		Short:         "mailvox: a voice assistant for your inbox",
		Long:          "Listen for a wake phrase, then send, read, summarize and delete email by voice.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			ui.Init(noColor, verbose)
		},
	}

	rootCmd.Version = buildVersion()
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	rootCmd.AddGroup(
		&cobra.Group{ID: "core", Title: "Core Commands:"},
		&cobra.Group{ID: "config", Title: "Configuration:"},
	)

	for _, c := range []*cobra.Command{initCmd(), authCmd(), listenCmd(), doctorCmd()} {
		c.GroupID = "core"
		rootCmd.AddCommand(c)
	}
	for _, c := range []*cobra.Command{configCmd(), contactsCmd(), vocabCmd()} {
		c.GroupID = "config"
		rootCmd.AddCommand(c)
	}
	rootCmd.AddCommand(mcpCmd())

	if err := rootCmd.Execute(); err != nil {
		ui.Error(err.Error())
		os.Exit(1)
	}
}

func initCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:     "init",
		Short:   "Initialize MAILVOX_HOME",
		Long:    "Create the MAILVOX_HOME directory (~/.mailvox by default) with audio/ and a default config.yaml.",
		Example: "  mailvox init\n  mailvox init --force",
		RunE: func(cmd *cobra.Command, args []string) error {
			home := store.Home()
			if err := store.Init(home, force); err != nil {
				return err
			}
			ui.Success("mailvox initialized")
			ui.Detail("Home:", home)
			ui.Detail("Next:", "put your Gmail OAuth client in credentials.json, then run 'mailvox auth'")
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "Rewrite config.yaml even if MAILVOX_HOME already exists")
	return cmd
}

func authCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "auth",
		Short: "Authorize Gmail access and cache the token",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadStore()
			if err != nil {
				return err
			}
			cfg, err := gmail.LoadConfig(s.CredentialsPath())
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			tok, err := gmail.Authorize(ctx, cfg, func(url string) {
				ui.Status("Open this URL in your browser to grant access:")
				fmt.Fprintln(os.Stderr, url)
			})
			if err != nil {
				return err
			}
			if err := gmail.SaveToken(s.TokenPath(), tok); err != nil {
				return err
			}
			ui.Success("Gmail access granted")
			ui.Detail("Token:", s.TokenPath())
			return nil
		},
	}
}

func listenCmd() *cobra.Command {
	var console bool
	cmd := &cobra.Command{
		Use:     "listen",
		Short:   "Run the voice assistant",
		Long:    "Wait for the wake phrase and handle mail commands until a shutdown phrase is heard.",
		Example: "  mailvox listen\n  mailvox listen --console",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadStore()
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			rec := metrics.New("")
			if addr := s.Config.Metrics.Addr; addr != "" {
				go func() {
					if err := rec.Serve(ctx, addr); err != nil {
						ui.Logger.Error("metrics listener failed", "addr", addr, "err", err)
					}
				}()
			}

			sp := ui.NewSpinner("Loading assistant...")
			ctrl, err := assemble(ctx, s, console, rec)
			sp.Stop()
			if err != nil {
				return err
			}

			err = ctrl.Run(ctx)
			switch {
			case errors.Is(err, dialog.ErrShutdown):
				os.Exit(0)
			case errors.Is(err, context.Canceled):
				return nil
			}
			return err
		},
	}
	cmd.Flags().BoolVar(&console, "console", false, "Type commands and read replies instead of using the microphone and speaker")
	return cmd
}

func doctorCmd() *cobra.Command {
	var fix bool
	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check MAILVOX_HOME, audio tools, model backend and mailbox access",
		RunE: func(cmd *cobra.Command, args []string) error {
			home := store.Home()
			if fix {
				ui.SectionHeader("DOCTOR: repair")
				fixed := store.FixIssues(home)
				for _, f := range fixed {
					ui.Success(fmt.Sprintf("[FIXED] %s", f))
				}
				if len(fixed) == 0 {
					ui.EmptyState("Nothing to fix.")
				}
			}

			s, err := store.Load(home)
			if err != nil {
				return err
			}
			ui.SectionHeader("DOCTOR: health check")

			issues := store.CheckHealth(home)
			if kit, err := voiceKit(s, false); err != nil {
				issues = append(issues, store.Issue{Severity: "error", Message: err.Error()})
			} else if err := kit.Check(); err != nil {
				issues = append(issues, store.Issue{Severity: "warning", Message: fmt.Sprintf("audio: %v (use 'listen --console' without audio tools)", err)})
			}
			if _, err := openBackend(cmd.Context(), s); err != nil {
				issues = append(issues, store.Issue{Severity: "warning", Message: fmt.Sprintf("llm: %v", err)})
			}
			if box, err := openMailbox(cmd.Context(), s); err != nil {
				issues = append(issues, store.Issue{Severity: "warning", Message: fmt.Sprintf("mailbox: %v", err)})
			} else if addr, err := box.Profile(cmd.Context()); err != nil {
				issues = append(issues, store.Issue{Severity: "error", Message: fmt.Sprintf("mailbox: %v", err)})
			} else {
				ui.Detail("Mailbox:", addr)
			}

			if len(issues) == 0 {
				ui.Success("Everything looks good")
				os.Exit(0)
			}

			for _, issue := range issues {
				if issue.Severity == "error" {
					ui.Error(fmt.Sprintf("[ERR]  %s", issue.Message))
				} else {
					ui.Warning(fmt.Sprintf("[WARN] %s", issue.Message))
				}
			}
			summary, hasError := issueSummary(issues)
			fmt.Fprintf(os.Stderr, "\n%s\n", summary)
			if hasError {
				os.Exit(2)
			}
			os.Exit(1)
			return nil
		},
	}
	cmd.Flags().BoolVar(&fix, "fix", false, "Recreate missing directories and config.yaml")
	return cmd
}

// issueSummary renders the doctor's closing tally and reports whether any
// issue was an error.
func issueSummary(issues []store.Issue) (string, bool) {
	var errs, warns int
	for _, issue := range issues {
		if issue.Severity == "error" {
			errs++
		} else {
			warns++
		}
	}
	tally := func(n int, noun string, paint func(string) string) string {
		s := fmt.Sprintf("%d %s", n, noun)
		if n != 1 {
			s += "s"
		}
		if n == 0 {
			return ui.Green(s)
		}
		return paint(s)
	}
	line := fmt.Sprintf("%s, %s %s",
		tally(errs, "error", ui.Red),
		tally(warns, "warning", ui.Yellow),
		ui.Dim("(file issues can be repaired with 'mailvox doctor --fix')"))
	return line, errs > 0
}

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "View and edit mailvox configuration",
	}
	cmd.AddCommand(configShowCmd())
	cmd.AddCommand(configGetCmd())
	cmd.AddCommand(configSetCmd())
	return cmd
}

func configShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Display current effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadStore()
			if err != nil {
				return err
			}
			data, err := yaml.Marshal(s.Config)
			if err != nil {
				return fmt.Errorf("failed to marshal config: %w", err)
			}
			fmt.Print(string(data))
			return nil
		},
	}
}

func configGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Print one configuration value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadStore()
			if err != nil {
				return err
			}
			v, err := s.GetConfigValue(args[0])
			if err != nil {
				return err
			}
			fmt.Println(v)
			return nil
		},
	}
}

func configSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a configuration value",
		Long:  "Set a mailvox configuration value. Phrase lists are comma-separated. Valid keys: " + strings.Join(store.ConfigKeys(), ", ") + ".",
		Example: `  mailvox config set llm.provider keywords
  mailvox config set vocabulary.wake "hey mail, hello mail"
  mailvox config set session.sleep_policy commands`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadStore()
			if err != nil {
				return err
			}
			if err := s.SetConfigValue(args[0], args[1]); err != nil {
				return err
			}
			ui.Success(fmt.Sprintf("Set %s = %s", args[0], args[1]))
			return nil
		},
	}
}

func contactsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "contacts",
		Short: "Manage the names you can say instead of addresses",
	}
	cmd.AddCommand(contactsListCmd())
	cmd.AddCommand(contactsAddCmd())
	cmd.AddCommand(contactsRemoveCmd())
	return cmd
}

func loadContacts() (*contacts.Directory, error) {
	s, err := loadStore()
	if err != nil {
		return nil, err
	}
	return contacts.Load(s.ContactsPath())
}

func contactsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List contacts",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := loadContacts()
			if err != nil {
				return err
			}
			list := dir.List()
			if len(list) == 0 {
				ui.EmptyState("No contacts yet. Use 'mailvox contacts add <name> <email>'.")
				return nil
			}
			var rows [][]string
			for _, c := range list {
				rows = append(rows, []string{c.Name, c.Email, strings.Join(c.Aliases, ", ")})
			}
			ui.Table(os.Stdout, []string{"NAME", "EMAIL", "ALIASES"}, rows)
			return nil
		},
	}
}

func contactsAddCmd() *cobra.Command {
	var aliases []string
	cmd := &cobra.Command{
		Use:     "add <name> <email>",
		Short:   "Add or replace a contact",
		Example: "  mailvox contacts add \"Bob Stone\" bob@example.com --alias bobby",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := loadContacts()
			if err != nil {
				return err
			}
			if err := dir.Add(contacts.Contact{Name: args[0], Email: args[1], Aliases: aliases}); err != nil {
				return err
			}
			if err := dir.Save(); err != nil {
				return err
			}
			ui.Success(fmt.Sprintf("Saved %s <%s>", args[0], args[1]))
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&aliases, "alias", nil, "Other names for this contact")
	return cmd
}

func contactsRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <name>",
		Short: "Remove a contact",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := loadContacts()
			if err != nil {
				return err
			}
			if err := dir.Remove(args[0]); err != nil {
				return err
			}
			if err := dir.Save(); err != nil {
				return err
			}
			ui.Success(fmt.Sprintf("Removed %s", args[0]))
			return nil
		},
	}
}

func vocabCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "vocab",
		Short: "Show the phrases and commands the assistant understands",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadStore()
			if err != nil {
				return err
			}
			ui.RenderMarkdown(os.Stdout, vocabMarkdown(s.Config))
			return nil
		},
	}
}

func vocabMarkdown(c store.Config) string {
	var b strings.Builder
	phrases := func(title string, list []string) {
		fmt.Fprintf(&b, "## %s\n\n", title)
		for _, p := range list {
			fmt.Fprintf(&b, "- \"%s\"\n", p)
		}
		b.WriteString("\n")
	}
	b.WriteString("# mailvox vocabulary\n\n")
	phrases("Wake", c.Vocabulary.Wake)
	phrases("Back to sleep", c.Vocabulary.Exit)
	phrases("Shut down", c.Vocabulary.Shutdown)
	phrases("Yes", c.Vocabulary.Affirmative)

	b.WriteString("## Commands\n\n| Intent | Try saying |\n|---|---|\n")
	examples := map[intent.Kind]string{
		intent.KindSendEmail:             "send an email to Bob",
		intent.KindReadLatestEmail:       "read my latest email",
		intent.KindReadEmailFromSender:   "read the latest email from Alice",
		intent.KindReadUnreadEmails:      "read my unread emails",
		intent.KindSummarizeLatestEmail:  "summarize my latest email",
		intent.KindDeleteLatestEmail:     "delete the latest email",
		intent.KindDeleteEmailFromSender: "delete the email from Bob",
		intent.KindCancel:                "never mind",
	}
	for _, k := range intent.Kinds() {
		if ex, ok := examples[k]; ok {
			fmt.Fprintf(&b, "| `%s` | %s |\n", k, ex)
		}
	}
	fmt.Fprintf(&b, "\nAfter %d %s the assistant goes back to sleep.\n",
		c.Session.SleepThreshold, sleepCounted(c.Session.SleepPolicy))
	return b.String()
}

func sleepCounted(policy string) string {
	if policy == "commands" {
		return "commands"
	}
	return "misunderstood commands in a row"
}

func mcpCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Model Context Protocol integration",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Run mailvox as an MCP server over stdio",
		Long:  "Expose the mailbox, contacts and intent resolver as MCP tools. Sending always goes through a draft the user must approve.",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadStore()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			backend, err := openBackend(ctx, s)
			if err != nil {
				return err
			}
			box, err := openMailbox(ctx, s)
			if err != nil {
				return err
			}
			dir, err := contacts.Load(s.ContactsPath())
			if err != nil {
				return err
			}
			server := mailvoxmcp.NewServer(mailvoxmcp.Deps{
				Resolver:       intent.NewResolver(backend.Oracle),
				Mail:           box,
				Contacts:       dir,
				Improver:       backend.Improver,
				DefaultSubject: s.Config.Dialog.DefaultSubject,
			}, version)
			return server.Run(ctx)
		},
	})
	return cmd
}

