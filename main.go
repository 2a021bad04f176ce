package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/avolkov/orbit-desktop/config"
	"github.com/avolkov/orbit-desktop/orbit_client"
	"github.com/avolkov/orbit-desktop/state"
	"github.com/avolkov/orbit-desktop/storage"
)

// Global variables
var (
	appConfig       *config.Config
	storageInstance *storage.Storage
)

func init() {
	var err error
	appConfig, err = config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		config.PrintMissingVarsHelp()
		os.Exit(1)
	}

	// Initialize storage
	storageInstance, err = storage.NewStorage("orbit-desktop", appConfig.StateDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newLogger(verbose bool) *zap.Logger {
	if verbose {
		logger, err := zap.NewDevelopment()
		if err == nil {
			return logger
		}
	}
	logger, err := zap.NewProduction()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

// promptSecret reads the account secret from the environment or, failing
// that, from stdin.
func promptSecret() (string, error) {
	if secret := os.Getenv("ORBIT_SECRET"); secret != "" {
		return secret, nil
	}
	fmt.Fprint(os.Stderr, "Orbit passphrase: ")
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("read passphrase: %w", err)
	}
	return strings.TrimSpace(line), nil
}

// persistSession writes the client's credential state back to the keyring
// and the non-secret snapshot to disk. Called after every command, so a
// token rotation that happened mid-request is not lost.
func persistSession(client *orbit_client.Client, credStore *storage.CredentialStore, appState *state.AppState, logger *zap.Logger) {
	refreshToken := client.RefreshToken()
	var err error
	if refreshToken == "" {
		err = credStore.Clear()
	} else {
		err = credStore.SaveRefreshToken(refreshToken)
	}
	if err != nil {
		logger.Warn("failed to persist credentials", zap.Error(err))
	}
	if err := state.Save(storageInstance, appState); err != nil {
		logger.Warn("failed to persist state", zap.Error(err))
	}
}

// Main function
func main() {
	// Parse command line arguments
	loginFlag := flag.Bool("login", false, "Log in and store the session")
	logoutFlag := flag.Bool("logout", false, "Log out and drop the stored session")
	identifierFlag := flag.String("identifier", "", "Account identifier (phone or username) for -login")
	balanceFlag := flag.Bool("balance", false, "Print the wallet balance")
	miningFlag := flag.Bool("mining", false, "Print the mining session status")
	profileFlag := flag.Bool("profile", false, "Print the account profile")
	verboseFlag := flag.Bool("verbose", false, "Enable verbose logging")
	flag.Parse()

	logger := newLogger(*verboseFlag)
	defer logger.Sync()

	// Load persisted state and credentials
	appState := state.Load(storageInstance)
	credStore := storage.NewCredentialStore(appConfig.KeyringService)

	client := orbit_client.NewClient(orbit_client.Config{
		BaseURL: appConfig.APIBaseURL,
		Timeout: appConfig.HTTPTimeout,
		DefaultHeaders: map[string]string{
			"X-Orbit-App-Key":   appConfig.AppKey,
			"X-Orbit-Device-Id": appState.Device.ID,
		},
	}, nil, logger.Named("client"))

	// Restore the session: the access token is re-acquired transparently on
	// the first 401 via the stored refresh token.
	if refreshToken, err := credStore.LoadRefreshToken(); err != nil {
		logger.Warn("could not read stored credentials", zap.Error(err))
	} else if refreshToken != "" {
		client.SetCredential("", refreshToken)
	}

	ctx := context.Background()

	switch {
	case *loginFlag:
		identifier := *identifierFlag
		if identifier == "" {
			identifier = appState.Session.Identifier
		}
		if identifier == "" {
			logger.Fatal("no account identifier; pass -identifier")
		}
		secret, err := promptSecret()
		if err != nil {
			logger.Fatal("failed to read secret", zap.Error(err))
		}
		if err := client.Login(ctx, identifier, secret); err != nil {
			logger.Fatal("login failed", zap.Error(err))
		}
		appState.Session.Identifier = identifier
		appState.Session.LastLogin = time.Now()
		fmt.Println("Logged in.")

	case *logoutFlag:
		if err := client.Logout(ctx); err != nil {
			logger.Warn("remote logout failed", zap.Error(err))
		}
		appState.Session = state.Session{}
		fmt.Println("Logged out.")

	case *balanceFlag:
		balance, err := orbit_client.NewWallet(client).Balance(ctx)
		if err != nil {
			logger.Fatal("failed to fetch balance", zap.Error(err))
		}
		fmt.Printf("%.4f %s (available %.4f)\n", balance.Amount, balance.Currency, balance.Available)

	case *miningFlag:
		status, err := orbit_client.NewMining(client).Status(ctx)
		if err != nil {
			logger.Fatal("failed to fetch mining status", zap.Error(err))
		}
		fmt.Printf("active=%v rate=%.4f/h total=%.4f session ends %s\n",
			status.Active, status.HourlyRate, status.TotalMined, status.SessionEnds)

	case *profileFlag:
		account, err := orbit_client.NewUser(client).Me(ctx)
		if err != nil {
			logger.Fatal("failed to fetch profile", zap.Error(err))
		}
		fmt.Printf("%s (%s) verified=%v joined %s\n",
			account.Username, account.DisplayName, account.Verified, account.CreatedAt)

	default:
		flag.Usage()
		os.Exit(2)
	}

	persistSession(client, credStore, appState, logger)
}
