package models

// All lists every table the service owns, in migration order.
func All() []any {
	return []any{
		&Mission{},
		&MissionTranslation{},
		&MissionUserState{},
		&ProfileProgression{},
		&MissionRewardLedgerEntry{},
		&MissionProgressEvent{},
		&MissionEventReceipt{},
		&ProfileBadge{},
		&ProfileMirror{},
	}
}
