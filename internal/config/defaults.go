package config

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 5000
	}
	if cfg.Server.MaxUploadBytes == 0 {
		cfg.Server.MaxUploadBytes = 50 << 20
	}
	if cfg.Storage.DatabasePath == "" {
		cfg.Storage.DatabasePath = "/usr/local/var/deckfill/data/deckfill.db"
	}
	if cfg.Storage.WorkspaceDir == "" {
		cfg.Storage.WorkspaceDir = "/usr/local/var/deckfill/workspace"
	}
	if cfg.Preprocess.Mode == "" {
		cfg.Preprocess.Mode = "native"
	}
	if cfg.Preprocess.TimeoutSeconds == 0 {
		cfg.Preprocess.TimeoutSeconds = 60
	}
}
