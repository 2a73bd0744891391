package commands

import (
	"bufio"
	"encoding/base64"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"
	"vtop-backend/lib/configutil"
	"vtop-backend/lib/restyutil"
	"vtop-backend/lib/scrapers/vtop"
	"vtop-backend/lib/serviceutil"
	"vtop-backend/lib/sqliteutil"
	"vtop-backend/services/session"
	vtopservice "vtop-backend/services/vtop"
	"vtop-backend/services/vtop/db"

	"github.com/spf13/cobra"
)

type Config struct {
	RegNo    string `json:"reg_no"`
	Password string `json:"password"`
	BaseUrl  string `json:"base_url"`
}

var captchaPath *string

func init() {
	captchaPath = loginCmd.Flags().String("captcha", "captcha.jpg", "Where the captcha image is written to.")
	rootCmd.AddCommand(loginCmd)
}

func writeCaptcha(dataUri, path string) error {
	_, encoded, found := strings.Cut(dataUri, "base64,")
	if !found {
		return fmt.Errorf("captcha is not a base64 data uri")
	}
	image, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return err
	}
	return os.WriteFile(path, image, 0600)
}

var loginCmd = &cobra.Command{
	Use:   "login [--db <path/to/output.db>] [--captcha <path/to/captcha.jpg>]",
	Short: "Logs into the portal with the credentials in config.json5 and scrapes the student into a database.",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()

		cfg, err := configutil.ReadConfig[Config]("config.json5")
		if err != nil {
			serviceutil.Fatal("failed to read config", err)
		}

		out, err := restyutil.NewFilesystemOutput(".dev/resty/vtop-cli")
		if err != nil {
			serviceutil.Fatal("failed to create resty output", err)
		}
		vtop.SetRestyInstrumentOutput(out)

		database, err := sqliteutil.OpenDB(db.Schema, *dbPath)
		if err != nil {
			serviceutil.Fatal("failed to open db", err)
		}
		defer database.Close()

		sessions, err := session.NewStore(session.Options{
			NewClient: func() (*vtop.Client, error) {
				return vtop.NewClient(vtop.ClientOptions{
					BaseUrl:            cfg.BaseUrl,
					InsecureSkipVerify: true,
				})
			},
		})
		if err != nil {
			serviceutil.Fatal("failed to create session store", err)
		}
		service := vtopservice.NewService(vtopservice.Options{
			Sessions:        sessions,
			Records:         vtopservice.NewSqlStore(database),
			CaptchaAttempts: vtopservice.DefaultCaptchaAttempts,
		})

		err = service.CreateSession(cfg.RegNo)
		if err != nil {
			serviceutil.Fatal("failed to create session", err)
		}

		stdin := bufio.NewReader(os.Stdin)
		for {
			captcha, err := service.PrepareLogin(ctx, cfg.RegNo)
			if err != nil {
				serviceutil.Fatal("failed to prepare login", err)
			}
			err = writeCaptcha(captcha, *captchaPath)
			if err != nil {
				serviceutil.Fatal("failed to write captcha", err)
			}

			fmt.Printf("captcha written to %s, enter it: ", *captchaPath)
			answer, err := stdin.ReadString('\n')
			if err != nil {
				serviceutil.Fatal("failed to read captcha", err)
			}

			result, err := service.Login(ctx, cfg.RegNo, vtopservice.Credentials{
				Password: cfg.Password,
				Captcha:  strings.TrimSpace(answer),
			})
			if err != nil {
				serviceutil.Fatal("failed to login", err)
			}
			if result.Outcome == vtopservice.LoginSucceeded {
				break
			}
			slog.Warn("login failed", "outcome", result.Outcome, "message", result.Message)
			if result.Outcome != vtopservice.LoginRejected {
				os.Exit(1)
			}
		}

		t1 := time.Now()
		result, err := service.Scrape(ctx, cfg.RegNo, true)
		if err != nil {
			serviceutil.Fatal("failed to scrape", err)
		}
		t2 := time.Now()

		name := "<unknown>"
		if result.Name != nil {
			name = *result.Name
		}
		slog.Info("scraped student", "name", name, "seconds", t2.Sub(t1).Seconds())
	},
}
