package envvar

const (
	// TTSAPIEnv is the environment variable used to determine the environment
	TTSAPIEnv = "TTSAPI_ENV"

	// TTSAPIServerHTTPPort is the environment variable used to determine the HTTP port
	TTSAPIServerHTTPPort = "TTSAPI_SERVER_HTTP_PORT"

	// TTSAPIServerGRPCPort is the environment variable used to determine the gRPC port
	TTSAPIServerGRPCPort = "TTSAPI_SERVER_GRPC_PORT"

	// TTSAPIModelsPath is the environment variable used to override the download cache for known models
	TTSAPIModelsPath = "TTSAPI_MODELS_PATH"

	// TTSAPIFilesystemRoot is the environment variable used to override the filesystem store root
	TTSAPIFilesystemRoot = "TTSAPI_FILESYSTEM_ROOT"
)
