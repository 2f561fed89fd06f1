package ffmpeg

// NewPlayer plays PCM written to the returned process using ffplay.
// Useful to listen to a mix interactively. Writes block at the pace of
// playback once ffplay's buffers are full.
func NewPlayer(sampleRate int, bigEndian bool) (*Process, error) {
	arguments := []string{"-autoexit", "-nodisp", "-loglevel", "warning"}
	arguments = append(arguments, inputArguments(sampleRate, bigEndian)...)
	return start("ffplay", arguments...)
}
