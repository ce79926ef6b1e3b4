package service

import "tableside/internal/model"

// ProjectTableStatus derives the displayed status label for a table from its
// persisted status and whether its pending cart holds any items. Pure;
// recomputed on every read.
//
// An unavailable table stays unavailable no matter what the cache says: a
// cart against a disabled table is an operator mistake and must stay
// visible as such. A non-empty cart overrides available and reserved; a
// cart row emptied line by line does not.
func ProjectTableStatus(persisted model.TableStatus, hasItems bool) model.TableStatus {
	if persisted == model.TableUnavailable {
		return model.TableUnavailable
	}
	if hasItems {
		return model.TableOccupied
	}
	return persisted
}
