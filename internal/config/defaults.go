package config

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Paths.DataDir == "" {
		cfg.Paths.DataDir = "./data"
	}
	if cfg.Paths.InstancesDir == "" {
		cfg.Paths.InstancesDir = "./instances"
	}
	if cfg.Paths.DatabasePath == "" {
		cfg.Paths.DatabasePath = "./data/bindery.db"
	}
	if cfg.Intake.MaxFileBytes == 0 {
		cfg.Intake.MaxFileBytes = 50 * 1024 * 1024
	}
	if cfg.OCR.Language == "" {
		cfg.OCR.Language = "eng"
	}
	if cfg.OCR.Quality == "" {
		cfg.OCR.Quality = "balanced"
	}
	if cfg.OCR.TesseractPath == "" {
		cfg.OCR.TesseractPath = "tesseract"
	}
	if cfg.Embedding.ModelPath == "" {
		cfg.Embedding.ModelPath = "models/all-MiniLM-L6-v2.onnx"
	}
	if cfg.Embedding.Dimensions == 0 {
		cfg.Embedding.Dimensions = 384
	}
	if cfg.Embedding.MaxTokens == 0 {
		cfg.Embedding.MaxTokens = 256
	}
	if cfg.Embedding.CacheSize == 0 {
		cfg.Embedding.CacheSize = 10000
	}
	if cfg.Embedding.BatchSize == 0 {
		cfg.Embedding.BatchSize = 32
	}
	if cfg.Enhance.MinTermLength == 0 {
		cfg.Enhance.MinTermLength = 4
	}
	if cfg.Watch.DebounceMillis == 0 {
		cfg.Watch.DebounceMillis = 400
	}
	if cfg.Book.Title == "" && cfg.Book.ID != "" {
		cfg.Book.Title = cfg.Book.ID
	}
}
