package expect

import (
	"fmt"
	"strings"

	"github.com/kuitang/labtests-e2e/internal/catalog"
)

// ItemHowItWorks is HowItWorks applied to a catalog item.
func ItemHowItWorks(it catalog.Item) []Step {
	return HowItWorks(it.SampleType, it.ReportGenerationHours, it.Content.Highlights)
}

// Step is one entry of the "How it works" section on a detail page.
type Step struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// Fixed step titles.
const (
	TitleHomeCollection = "At-Home Sample Collection"
	TitleSelfTestKit    = "At-Home Self-Test Kit"
	TitleResults72h     = "Get Results in 72 Hours"
	TitleConsultation   = "1-on-1 Expert Consultation"
	TitleTrackProgress  = "Track Progress Overtime"
)

const (
	bloodResultsTemplate   = "Your lab report is ready within %s of sample collection and is shared on your dashboard."
	collectionTemplate     = "Collect your sample at home in a few minutes: %s."
	defaultCollection      = "Collect your sample at home in a few minutes using the instructions in your kit."
	defaultResults         = "Once our partner lab receives your sample, your results are published on your dashboard."
	defaultConsultation    = "Walk through your results with one of our experts and get a personalised plan."
	trackProgressDesc      = "Retest every few months and watch your markers move on your health dashboard."
	defaultKitDeliveryName = "Kit Delivered to Your Door"
	defaultKitDeliveryDesc = "Your test kit arrives at your address with everything you need inside."
)

// Lookup tables keyed by lower-case raw sample type. They are read-only; use the
// accessors to get copies.
var (
	collectionDescriptions = map[string]string{
		SampleSaliva:         "A phlebotomist-free saliva collection: spit into the tube up to the marked line and seal it.",
		SampleStool:          "Use the scoop in your kit to collect a small stool sample and seal it in the stabilising tube.",
		SampleBlood:          "A certified phlebotomist visits your home at the slot you choose to collect your blood sample.",
		SampleDriedBloodSpot: "Prick your fingertip with the lancet and fill the circles on the collection card.",
		SampleSalivaStress:   "Collect four saliva samples across the day at the times printed on your kit.",
	}

	resultsDescriptions = map[string]string{
		SampleSaliva:         "Our partner lab sequences your sample and your report is ready within 3-4 weeks.",
		SampleStool:          "Our partner lab analyses your gut microbiome and your report is ready within 3-4 weeks.",
		SampleDriedBloodSpot: "Your card is analysed at our partner lab and results are ready within 7-10 days.",
		SampleSalivaStress:   "Your cortisol curve is charted from all four samples within 7-10 days.",
	}

	consultationDescriptions = map[string]string{
		SampleSaliva:         "A genetic counsellor explains what your genes mean for your diet, fitness and health risks.",
		SampleStool:          "A gut health expert explains your microbiome and builds a food plan around it.",
		SampleBlood:          "A doctor reviews your blood markers with you and recommends next steps.",
		SampleDriedBloodSpot: "A nutritionist reviews your results and recommends diet and supplement changes.",
		SampleSalivaStress:   "A stress specialist reviews your cortisol rhythm and suggests lifestyle changes.",
	}

	kitDeliverySteps = map[string]Step{
		SampleSaliva:         {Title: "Saliva Kit Delivered", Description: "We ship a saliva collection kit to your address within 2-3 days."},
		SampleStool:          {Title: "Stool Kit Delivered", Description: "We ship a stool collection kit with a prepaid return pouch."},
		SampleDriedBloodSpot: {Title: "Finger-Prick Kit Delivered", Description: "We ship a finger-prick kit with lancets and a collection card."},
		SampleSalivaStress:   {Title: "Cortisol Kit Delivered", Description: "We ship four labelled saliva tubes for your day of sampling."},
	}
)

// CollectionDescriptions returns a copy of the step-1 description table.
func CollectionDescriptions() map[string]string { return copyStrings(collectionDescriptions) }

// ResultsDescriptions returns a copy of the step-2 description table (non-blood types).
func ResultsDescriptions() map[string]string { return copyStrings(resultsDescriptions) }

// ConsultationDescriptions returns a copy of the step-3 description table.
func ConsultationDescriptions() map[string]string { return copyStrings(consultationDescriptions) }

// KitDeliverySteps returns a copy of the kit-delivery step table.
func KitDeliverySteps() map[string]Step {
	out := make(map[string]Step, len(kitDeliverySteps))
	for k, v := range kitDeliverySteps {
		out[k] = v
	}
	return out
}

func copyStrings(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// HowItWorks builds the ordered "How it works" steps for a sample type.
//
// The base steps are collection, results and consultation. Blood adds a final
// progress-tracking step; any other non-empty sample type gets a kit-delivery step
// in front.
func HowItWorks(sampleType, reportGenerationHours string, highlights []string) []Step {
	st := strings.ToLower(strings.TrimSpace(sampleType))
	hours := strings.TrimSpace(reportGenerationHours)
	if hours == "" {
		hours = catalog.DefaultReportGenerationHours
	}

	collectTitle := TitleSelfTestKit
	if st == SampleSaliva || st == SampleBlood {
		collectTitle = TitleHomeCollection
	}
	collectDesc, ok := collectionDescriptions[st]
	if !ok {
		if h0, has := highlightAt(highlights, 0); has {
			collectDesc = fmt.Sprintf(collectionTemplate, h0)
		} else {
			collectDesc = defaultCollection
		}
	}

	resultsTitle := TitleResults72h
	if h3, has := highlightAt(highlights, 3); has {
		resultsTitle = h3
	}
	var resultsDesc string
	if st == SampleBlood {
		resultsDesc = fmt.Sprintf(bloodResultsTemplate, hours)
	} else if d, ok := resultsDescriptions[st]; ok {
		resultsDesc = d
	} else {
		resultsDesc = defaultResults
	}

	consultDesc, ok := consultationDescriptions[st]
	if !ok {
		consultDesc = defaultConsultation
	}

	base := []Step{
		{Title: collectTitle, Description: collectDesc},
		{Title: resultsTitle, Description: resultsDesc},
		{Title: TitleConsultation, Description: consultDesc},
	}

	switch {
	case st == SampleBlood:
		return append(base, Step{Title: TitleTrackProgress, Description: trackProgressDesc})
	case st != "":
		kit, ok := kitDeliverySteps[st]
		if !ok {
			kit = Step{Title: defaultKitDeliveryName, Description: defaultKitDeliveryDesc}
		}
		return append([]Step{kit}, base...)
	default:
		return base
	}
}

func highlightAt(highlights []string, i int) (string, bool) {
	if i < 0 || i >= len(highlights) {
		return "", false
	}
	h := strings.TrimSpace(highlights[i])
	return h, h != ""
}
