package competition

// WinnerEntry is one placed winner's claim record.
type WinnerEntry struct {
	Rank    int
	Token   string
	Prize   uint64
	Claimed bool
}

// WinnerRegistry is created once at finalization and drained by claims.
type WinnerRegistry struct {
	CompetitionID string
	Entries       map[string]*WinnerEntry
	Unclaimed     uint64
	ClaimedCount  int
	FullySettled  bool
}

func newWinnerRegistry(competitionID string) *WinnerRegistry {
	return &WinnerRegistry{
		CompetitionID: competitionID,
		Entries:       make(map[string]*WinnerEntry, 3),
	}
}

func (r *WinnerRegistry) add(address, token string, rank int, prize uint64) {
	r.Entries[address] = &WinnerEntry{Rank: rank, Token: token, Prize: prize}
	r.Unclaimed += prize
}

// Entry returns the winner entry for address, or nil.
func (r *WinnerRegistry) Entry(address string) *WinnerEntry {
	return r.Entries[address]
}
