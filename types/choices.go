package types

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

// InvalidChoiceError reports a value outside of a closed enumeration.
type InvalidChoiceError struct {
	Value   string
	Choices []string
}

func (e *InvalidChoiceError) Error() string {
	return fmt.Sprintf("%q is not a valid choice (expected one of: %s)", e.Value, strings.Join(e.Choices, ", "))
}

// AnnonceCategorie classifies a listing.
type AnnonceCategorie string

const (
	AnnonceOpportunitesAffaires AnnonceCategorie = "opportunites_affaires"
	AnnonceOffresServices       AnnonceCategorie = "offres_services"
	AnnonceRecherchePartenaires AnnonceCategorie = "recherche_partenaires"
	AnnonceConseilJuridique     AnnonceCategorie = "conseil_juridique"
	AnnonceAutre                AnnonceCategorie = "autre"
)

var annonceCategories = []AnnonceCategorie{
	AnnonceOpportunitesAffaires,
	AnnonceOffresServices,
	AnnonceRecherchePartenaires,
	AnnonceConseilJuridique,
	AnnonceAutre,
}

func ParseAnnonceCategorie(raw string) (AnnonceCategorie, error) {
	return parseChoice(raw, annonceCategories)
}

func (c AnnonceCategorie) Valid() bool { return isChoice(c, annonceCategories) }

func (c *AnnonceCategorie) UnmarshalJSON(data []byte) error {
	return unmarshalChoice(data, c, annonceCategories)
}

// DocumentationCategorie classifies a documentation article.
type DocumentationCategorie string

const (
	DocumentationCommerciale DocumentationCategorie = "commerciale"
	DocumentationJuridique   DocumentationCategorie = "juridique"
	DocumentationTechnique   DocumentationCategorie = "technique"
	DocumentationAutre       DocumentationCategorie = "autre"
)

var documentationCategories = []DocumentationCategorie{
	DocumentationCommerciale,
	DocumentationJuridique,
	DocumentationTechnique,
	DocumentationAutre,
}

func ParseDocumentationCategorie(raw string) (DocumentationCategorie, error) {
	return parseChoice(raw, documentationCategories)
}

func (c DocumentationCategorie) Valid() bool { return isChoice(c, documentationCategories) }

func (c *DocumentationCategorie) UnmarshalJSON(data []byte) error {
	return unmarshalChoice(data, c, documentationCategories)
}

// EvenementCategorie classifies an event.
type EvenementCategorie string

const (
	EvenementOpportunites EvenementCategorie = "opportunites"
	EvenementNetworking   EvenementCategorie = "networking"
	EvenementFormation    EvenementCategorie = "formation"
	EvenementConference   EvenementCategorie = "conference"
	EvenementAtelier      EvenementCategorie = "atelier"
)

var evenementCategories = []EvenementCategorie{
	EvenementOpportunites,
	EvenementNetworking,
	EvenementFormation,
	EvenementConference,
	EvenementAtelier,
}

func ParseEvenementCategorie(raw string) (EvenementCategorie, error) {
	return parseChoice(raw, evenementCategories)
}

func (c EvenementCategorie) Valid() bool { return isChoice(c, evenementCategories) }

func (c *EvenementCategorie) UnmarshalJSON(data []byte) error {
	return unmarshalChoice(data, c, evenementCategories)
}

// EvenementTag is the thematic tag of an event. It has no default value.
type EvenementTag string

const (
	TagAgriculture    EvenementTag = "agriculture"
	TagInnovation     EvenementTag = "innovation"
	TagPartenariats   EvenementTag = "partenariats"
	TagInvestissement EvenementTag = "investissement"
	TagFinancement    EvenementTag = "financement"
	TagAutre          EvenementTag = "autre"
)

var evenementTags = []EvenementTag{
	TagAgriculture,
	TagInnovation,
	TagPartenariats,
	TagInvestissement,
	TagFinancement,
	TagAutre,
}

func ParseEvenementTag(raw string) (EvenementTag, error) {
	return parseChoice(raw, evenementTags)
}

func (t EvenementTag) Valid() bool { return isChoice(t, evenementTags) }

func (t *EvenementTag) UnmarshalJSON(data []byte) error {
	return unmarshalChoice(data, t, evenementTags)
}

// ServiceExpert is the service category offered by an expert.
type ServiceExpert string

const (
	ServiceDedouanement     ServiceExpert = "dedouanement"
	ServiceTransport        ServiceExpert = "transport"
	ServiceLogistique       ServiceExpert = "logistique"
	ServiceConseilJuridique ServiceExpert = "conseil_juridique"
	ServiceContrats         ServiceExpert = "contrats"
	ServiceFinancement      ServiceExpert = "financement"
	ServiceAutre            ServiceExpert = "autre"
)

// DefaultServiceExpert applies when an expert does not pick a service.
const DefaultServiceExpert = ServiceLogistique

var servicesExpert = []ServiceExpert{
	ServiceDedouanement,
	ServiceTransport,
	ServiceLogistique,
	ServiceConseilJuridique,
	ServiceContrats,
	ServiceFinancement,
	ServiceAutre,
}

func ParseServiceExpert(raw string) (ServiceExpert, error) {
	return parseChoice(raw, servicesExpert)
}

func (s ServiceExpert) Valid() bool { return isChoice(s, servicesExpert) }

func (s *ServiceExpert) UnmarshalJSON(data []byte) error {
	return unmarshalChoice(data, s, servicesExpert)
}

func isChoice[T ~string](value T, choices []T) bool {
	for _, choice := range choices {
		if value == choice {
			return true
		}
	}
	return false
}

func parseChoice[T ~string](raw string, choices []T) (T, error) {
	value := T(strings.TrimSpace(raw))
	if isChoice(value, choices) {
		return value, nil
	}
	names := make([]string, len(choices))
	for i, choice := range choices {
		names[i] = string(choice)
	}
	var zero T
	return zero, &InvalidChoiceError{Value: raw, Choices: names}
}

func unmarshalChoice[T ~string](data []byte, target *T, choices []T) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	value, err := parseChoice(raw, choices)
	if err != nil {
		return invalidValue[T](raw)
	}
	*target = value
	return nil
}

// invalidValue reports raw as a value T cannot hold. The JSON decoder
// fills in the field path of the returned error.
func invalidValue[T any](raw string) error {
	return &json.UnmarshalTypeError{Value: strconv.Quote(raw), Type: reflect.TypeOf((*T)(nil)).Elem()}
}
