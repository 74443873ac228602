package main

import (
	"strings"
	"sync"

	"clipforge/internal/config"
)

type commandContext struct {
	apiFlag    *string
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(apiFlag, configFlag *string) *commandContext {
	return &commandContext{
		apiFlag:    apiFlag,
		configFlag: configFlag,
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

// apiBase resolves the daemon address: the --api flag wins, then the
// configured bind address.
func (c *commandContext) apiBase() string {
	if c.apiFlag != nil {
		if addr := strings.TrimSpace(*c.apiFlag); addr != "" {
			return normalizeBase(addr)
		}
	}
	if cfg, err := c.ensureConfig(); err == nil && cfg != nil {
		return normalizeBase(cfg.Paths.APIBind)
	}
	return normalizeBase(config.Default().Paths.APIBind)
}

func (c *commandContext) client() *apiClient {
	return newAPIClient(c.apiBase())
}

func normalizeBase(addr string) string {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		addr = "127.0.0.1:8093"
	}
	if !strings.HasPrefix(addr, "http://") && !strings.HasPrefix(addr, "https://") {
		addr = "http://" + addr
	}
	return strings.TrimRight(addr, "/")
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
