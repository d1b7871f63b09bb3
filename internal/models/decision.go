package models

// SpamKind is the closed set of spam classifications the detector emits.
type SpamKind string

const (
	SpamGlobalFlood SpamKind = "global_flood"
	SpamStickers    SpamKind = "stickers"
	SpamBurst       SpamKind = "burst"
	SpamDuplicate   SpamKind = "duplicate"
	SpamLowQuality  SpamKind = "lowquality"
)

type Verdict uint8

const (
	VerdictAllow Verdict = iota
	VerdictIgnored
	VerdictSpam
)

// Decision is the classifier output. Kind and Detail are only meaningful
// when Verdict is VerdictSpam.
type Decision struct {
	Verdict Verdict  `json:"verdict"`
	Kind    SpamKind `json:"kind,omitempty"`
	Detail  string   `json:"detail,omitempty"`
}

func Allow() Decision {
	return Decision{Verdict: VerdictAllow}
}

func Ignored() Decision {
	return Decision{Verdict: VerdictIgnored}
}

func Spam(kind SpamKind, detail string) Decision {
	return Decision{Verdict: VerdictSpam, Kind: kind, Detail: detail}
}

func (d Decision) IsSpam() bool {
	return d.Verdict == VerdictSpam
}
