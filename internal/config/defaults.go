package config

const (
	defaultDataDir               = "~/.local/share/podscribe"
	defaultLogDir                = "~/.local/share/podscribe/logs"
	defaultLogFormat             = "console"
	defaultLogLevel              = "info"
	defaultSearchBaseURL         = "https://www.googleapis.com/youtube/v3"
	defaultSearchMaxResults      = 10
	defaultDateBufferDays        = 14
	defaultAttemptTimeoutSeconds = 120
	defaultCaptionsLanguage      = "en"
	defaultInnertubeBaseURL      = "https://www.youtube.com"
	defaultVideoInfoMonthlyLimit = 250
	defaultSpeechBaseURL         = "https://api.openai.com/v1"
	defaultSpeechModel           = "whisper-1"
	defaultSpeechMonthlyLimit    = 500
	defaultSpeechMaxUploadBytes  = 25 * 1024 * 1024
	defaultSpeechTimeoutSeconds  = 300
	defaultLLMBaseURL            = "https://openrouter.ai/api/v1/chat/completions"
	defaultLLMModel              = "google/gemini-3-flash-preview"
	defaultLLMTimeoutSeconds     = 120
	defaultMaxChunkChars         = 18000
	defaultMaxChunks             = 6
	defaultDebugBackend          = "filesystem"
	defaultDebugBucket           = "podscribe-debug"
	defaultFFmpegBinary          = "ffmpeg"
)

func defaultProviderOrder() []string {
	return []string{"captions", "innertube", "videoinfo", "speech"}
}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
		Search: Search{
			BaseURL:        defaultSearchBaseURL,
			MaxResults:     defaultSearchMaxResults,
			DateBufferDays: defaultDateBufferDays,
		},
		Providers: Providers{
			Order:                 defaultProviderOrder(),
			AttemptTimeoutSeconds: defaultAttemptTimeoutSeconds,
			CaptionsLanguage:      defaultCaptionsLanguage,
			InnertubeBaseURL:      defaultInnertubeBaseURL,
		},
		VideoInfo: VideoInfo{
			MonthlyLimit: defaultVideoInfoMonthlyLimit,
		},
		Speech: Speech{
			BaseURL:        defaultSpeechBaseURL,
			Model:          defaultSpeechModel,
			MonthlyLimit:   defaultSpeechMonthlyLimit,
			MaxUploadBytes: defaultSpeechMaxUploadBytes,
			TimeoutSeconds: defaultSpeechTimeoutSeconds,
		},
		LLM: LLM{
			BaseURL:        defaultLLMBaseURL,
			Model:          defaultLLMModel,
			TimeoutSeconds: defaultLLMTimeoutSeconds,
			MaxChunkChars:  defaultMaxChunkChars,
			MaxChunks:      defaultMaxChunks,
		},
		Debug: Debug{
			Backend: defaultDebugBackend,
			Bucket:  defaultDebugBucket,
		},
		FFmpeg: FFmpeg{
			Binary: defaultFFmpegBinary,
		},
	}
}
