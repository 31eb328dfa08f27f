package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/eskarasu/merge-videos/internal/config"
)

const userEnvVar = "MERGE_VIDEOS_USER"

type commandContext struct {
	serverFlag *string
	configFlag *string
	userFlag   *int64

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(serverFlag, configFlag *string, userFlag *int64) *commandContext {
	return &commandContext{
		serverFlag: serverFlag,
		configFlag: configFlag,
		userFlag:   userFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

// serverURL resolves the API base URL from the --server flag or the
// configured bind address.
func (c *commandContext) serverURL() (string, error) {
	if c.serverFlag != nil && strings.TrimSpace(*c.serverFlag) != "" {
		return strings.TrimRight(strings.TrimSpace(*c.serverFlag), "/"), nil
	}
	cfg, err := c.ensureConfig()
	if err != nil {
		return "", err
	}
	return "http://" + cfg.Paths.APIBind, nil
}

// userID resolves the acting user from --user or MERGE_VIDEOS_USER.
func (c *commandContext) userID() (int64, error) {
	if c.userFlag != nil && *c.userFlag > 0 {
		return *c.userFlag, nil
	}
	if raw := strings.TrimSpace(os.Getenv(userEnvVar)); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			return 0, fmt.Errorf("invalid %s value %q", userEnvVar, raw)
		}
		return id, nil
	}
	return 0, fmt.Errorf("no user selected; pass --user or set %s", userEnvVar)
}

func (c *commandContext) client() (*apiClient, error) {
	base, err := c.serverURL()
	if err != nil {
		return nil, err
	}
	user, err := c.userID()
	if err != nil {
		return nil, err
	}
	return newAPIClient(base, user), nil
}
