package upload

// AllowedAudioTypes is the fixed allow-list of MIME types a client may
// request an upload credential for.
var AllowedAudioTypes = []string{
	"audio/webm",
	"audio/mpeg",
	"audio/mp4",
	"audio/x-m4a",
	"audio/wav",
	"audio/ogg",
}

var extByMIME = map[string]string{
	"audio/webm":  "webm",
	"audio/mpeg":  "mp3",
	"audio/mp4":   "m4a",
	"audio/x-m4a": "m4a",
	"audio/wav":   "wav",
	"audio/ogg":   "ogg",
}

func allowedContentType(ct string) bool {
	_, ok := extByMIME[ct]
	return ok
}
