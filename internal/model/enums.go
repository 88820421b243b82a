package model

import (
	"encoding/json"

	"github.com/rotisserie/eris"
)

// ProspectType classifies what kind of prospect a profile describes.
type ProspectType string

const (
	ProspectTypeCompany      ProspectType = "company"
	ProspectTypeIndividual   ProspectType = "individual"
	ProspectTypeEntrepreneur ProspectType = "entrepreneur"
	ProspectTypeInvestor     ProspectType = "investor"
	ProspectTypePartner      ProspectType = "partner"
	ProspectTypeClient       ProspectType = "client"
	ProspectTypeOther        ProspectType = "other"
)

// ProspectTypes lists every valid prospect type.
var ProspectTypes = []ProspectType{
	ProspectTypeCompany, ProspectTypeIndividual, ProspectTypeEntrepreneur,
	ProspectTypeInvestor, ProspectTypePartner, ProspectTypeClient, ProspectTypeOther,
}

// ParseProspectType returns the ProspectType named by s.
func ParseProspectType(s string) (ProspectType, error) {
	for _, v := range ProspectTypes {
		if string(v) == s {
			return v, nil
		}
	}
	return "", eris.Errorf("model: unknown prospect type %q", s)
}

// UnmarshalJSON rejects values outside the closed set.
func (t *ProspectType) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return eris.Wrap(err, "model: decode prospect type")
	}
	v, err := ParseProspectType(s)
	if err != nil {
		return err
	}
	*t = v
	return nil
}

// Relevance scores how well a prospect aligns with the discovering company's goal.
type Relevance string

const (
	RelevanceHigh     Relevance = "High"
	RelevanceMedium   Relevance = "Medium"
	RelevanceLow      Relevance = "Low"
	RelevanceUnscored Relevance = "Unscored"
)

// Relevances lists every valid relevance score.
var Relevances = []Relevance{RelevanceHigh, RelevanceMedium, RelevanceLow, RelevanceUnscored}

// ParseRelevance returns the Relevance named by s.
func ParseRelevance(s string) (Relevance, error) {
	for _, v := range Relevances {
		if string(v) == s {
			return v, nil
		}
	}
	return "", eris.Errorf("model: unknown relevance score %q", s)
}

// UnmarshalJSON rejects values outside the closed set.
func (r *Relevance) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return eris.Wrap(err, "model: decode relevance score")
	}
	v, err := ParseRelevance(s)
	if err != nil {
		return err
	}
	*r = v
	return nil
}

// Status is the engagement lifecycle state of a prospect.
type Status string

const (
	StatusDiscovered Status = "discovered"
	StatusQualified  Status = "qualified"
	StatusContacted  Status = "contacted"
	StatusEngaged    Status = "engaged"
	StatusConverted  Status = "converted"
	StatusRejected   Status = "rejected"
	StatusArchived   Status = "archived"
)

// Statuses lists every valid status in lifecycle order.
var Statuses = []Status{
	StatusDiscovered, StatusQualified, StatusContacted, StatusEngaged,
	StatusConverted, StatusRejected, StatusArchived,
}

// ParseStatus returns the Status named by s.
func ParseStatus(s string) (Status, error) {
	for _, v := range Statuses {
		if string(v) == s {
			return v, nil
		}
	}
	return "", eris.Errorf("model: unknown status %q", s)
}

// UnmarshalJSON rejects values outside the closed set.
func (st *Status) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return eris.Wrap(err, "model: decode status")
	}
	v, err := ParseStatus(s)
	if err != nil {
		return err
	}
	*st = v
	return nil
}
