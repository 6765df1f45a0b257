package services

// CategoryKind separates categories the researcher authored from ones a
// participant introduced, either brand-new or by renaming a predefined one.
type CategoryKind string

const (
	CategoryPredefined  CategoryKind = "predefined"
	CategoryUserCreated CategoryKind = "user-created"
)

// PlacedCard is one card placed into a category group, tagged with the
// participant who placed it so the view can color-code per participant.
type PlacedCard struct {
	CardID        string `json:"card_id"`
	ParticipantID string `json:"participant_id"`
	Ordinal       int    `json:"ordinal"`
	Label         string `json:"label"`
}

// CategoryGroup collects every card placed under one display name across all
// completed participants. Two participants who independently used the same
// name land in the same group; that consensus is the point of the view.
type CategoryGroup struct {
	Name  string       `json:"name"`
	Kind  CategoryKind `json:"kind"`
	Cards []PlacedCard `json:"cards"`
}

// PredefinedNames returns the set of researcher-authored category names.
func PredefinedNames(categories []*Category) map[string]bool {
	names := make(map[string]bool, len(categories))
	for _, c := range categories {
		if !c.IsUserCreated {
			names[c.Name] = true
		}
	}
	return names
}

// ClassifyPlacement decides per placement whether the category used was one of
// the study's predefined categories, unmodified. A renamed predefined category
// and a brand-new name are both user-created: the rename changed what the
// label means to that participant, so it no longer represents the
// researcher-authored grouping.
func ClassifyPlacement(r *CardSortResult, predefined map[string]bool) CategoryKind {
	if r.OriginalCategoryName == r.CategoryName && predefined[r.CategoryName] {
		return CategoryPredefined
	}
	return CategoryUserCreated
}

// placementName resolves the display name for a placement: the free-text name
// when present, else the referenced predefined category's name. Placements
// whose category was deleted after submission fall back to the raw id so the
// row still renders.
func placementName(r *CardSortResult, categoriesByID map[string]*Category) string {
	if r.CategoryName != "" {
		return r.CategoryName
	}
	if c := categoriesByID[r.CategoryID]; c != nil {
		return c.Name
	}
	if r.CategoryID != "" {
		return r.CategoryID
	}
	return "-"
}

// GroupByCategory builds the aggregated card-sort view from a snapshot. Group
// order is stable: the study's predefined categories first, in study order
// (including empty ones), then user-created names in first-seen order across
// participants in fetch order. When the same name appears both as an
// unmodified predefined category and as a coincidental new name, the group
// keeps the kind of the first-seen placement.
func GroupByCategory(snap *StudySnapshot) []*CategoryGroup {
	cardsByID := make(map[string]*Card, len(snap.Content.Cards))
	for _, c := range snap.Content.Cards {
		cardsByID[c.ID] = c
	}
	categoriesByID := make(map[string]*Category, len(snap.Content.Categories))
	for _, c := range snap.Content.Categories {
		categoriesByID[c.ID] = c
	}
	predefined := PredefinedNames(snap.Content.Categories)

	groups := make([]*CategoryGroup, 0, len(snap.Content.Categories))
	byName := make(map[string]*CategoryGroup)
	for _, c := range snap.Content.Categories {
		if c.IsUserCreated {
			continue
		}
		g := &CategoryGroup{Name: c.Name, Kind: CategoryPredefined}
		groups = append(groups, g)
		byName[c.Name] = g
	}

	for i, pr := range snap.Participants {
		for _, r := range pr.CardSorts {
			name := placementName(r, categoriesByID)
			g := byName[name]
			if g == nil {
				g = &CategoryGroup{Name: name, Kind: ClassifyPlacement(r, predefined)}
				groups = append(groups, g)
				byName[name] = g
			}
			label := r.CardID
			if card := cardsByID[r.CardID]; card != nil {
				label = card.Label
			}
			g.Cards = append(g.Cards, PlacedCard{
				CardID:        r.CardID,
				ParticipantID: pr.Participant.ID,
				Ordinal:       i + 1,
				Label:         label,
			})
		}
	}
	return groups
}

// FilterGroupsByParticipant prunes each group down to one participant's cards
// without regrouping. Groups left empty are kept so the category layout stays
// comparable across filters.
func FilterGroupsByParticipant(groups []*CategoryGroup, participantID string) []*CategoryGroup {
	if participantID == "" || participantID == "all" {
		return groups
	}
	out := make([]*CategoryGroup, 0, len(groups))
	for _, g := range groups {
		fg := &CategoryGroup{Name: g.Name, Kind: g.Kind}
		for _, c := range g.Cards {
			if c.ParticipantID == participantID {
				fg.Cards = append(fg.Cards, c)
			}
		}
		out = append(out, fg)
	}
	return out
}

// FilterGroupsByKind keeps only groups of the requested kind; "all" (or empty)
// passes everything through.
func FilterGroupsByKind(groups []*CategoryGroup, kind string) []*CategoryGroup {
	if kind == "" || kind == "all" {
		return groups
	}
	out := make([]*CategoryGroup, 0, len(groups))
	for _, g := range groups {
		if string(g.Kind) == kind {
			out = append(out, g)
		}
	}
	return out
}
