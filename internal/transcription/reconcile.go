package transcription

import "strings"

// Reconciliation thresholds. These are an explicit tie-break policy, not
// tuned scores; tests assert on the literal values.
const (
	// serverOverrideConfidence: above this the server result wins outright.
	serverOverrideConfidence = 0.9
	// serverLengthRatio: server transcript with this many times more
	// words suggests the real-time capture truncated the utterance.
	serverLengthRatio = 1.5
	// longTranscriptWords: minimum server word count before either
	// length heuristic applies.
	longTranscriptWords = 5
	// shortRealtimeWords: below this the real-time capture is
	// suspiciously short, likely incomplete.
	shortRealtimeWords = 3
	// corroborationDiscount applied to the server confidence when the
	// real-time result wins: an agreeing-but-not-overriding server pass
	// is corroborating evidence, not proof.
	corroborationDiscount = 0.9
)

// Reconcile picks the authoritative result when both a real-time
// (web_speech) transcript and a fresh server transcript exist for the
// same utterance. It is a pure decision function: no I/O, never fails,
// always returns one of its two inputs (the real-time branch with an
// adjusted confidence).
//
// Rules, in priority order:
//  1. server confidence > 0.9: server wins.
//  2. server has >=1.5x the real-time word count and more than 5 words:
//     server wins.
//  3. real-time has fewer than 3 words and server more than 5: server wins.
//  4. otherwise the real-time result wins with confidence lifted to
//     max(0.85, serverConfidence*0.9).
func Reconcile(realtime, server Result) Result {
	if server.Confidence > serverOverrideConfidence {
		return server
	}

	realtimeWords := len(strings.Fields(realtime.Text))
	serverWords := len(strings.Fields(server.Text))

	if float64(serverWords) >= serverLengthRatio*float64(realtimeWords) && serverWords > longTranscriptWords {
		return server
	}

	if realtimeWords < shortRealtimeWords && serverWords > longTranscriptWords {
		return server
	}

	chosen := realtime
	chosen.Confidence = WebSpeechConfidence
	if boosted := server.Confidence * corroborationDiscount; boosted > chosen.Confidence {
		chosen.Confidence = boosted
	}
	chosen.Confidence = clampConfidence(chosen.Confidence)
	// The caller stamps total elapsed time; reconciliation itself costs nothing.
	chosen.ProcessingTimeMs = 0
	return chosen
}
