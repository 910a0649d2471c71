package validate_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"stitchflow.app/conductor/internal/model"
	"stitchflow.app/conductor/internal/validate"
)

var _ = Describe("IsComplete", func() {
	gaps := []model.Gap{
		{Type: model.GapMissingTeamID, Severity: model.GapSeverityCritical},
		{Type: model.GapMissingDate, Severity: model.GapSeverityHigh},
		{Type: model.GapUnresolvedDependency, Severity: model.GapSeverityMedium},
		{Type: model.GapShortTaskDescription, Severity: model.GapSeverityLow},
	}

	It("reports complete for an empty gap list", func() {
		result := validate.IsComplete(nil, false)

		Expect(result.Complete).To(BeTrue())
		Expect(result.BlockingGaps).To(BeEmpty())
		Expect(result.Warnings).To(BeEmpty())
	})

	It("blocks on critical and high gaps", func() {
		result := validate.IsComplete(gaps, false)

		Expect(result.Complete).To(BeFalse())
		Expect(result.BlockingGaps).To(HaveLen(2))
		Expect(result.BlockingGaps[0].Severity).To(Equal(model.GapSeverityCritical))
		Expect(result.BlockingGaps[1].Severity).To(Equal(model.GapSeverityHigh))
		Expect(result.Warnings).To(HaveLen(2))
	})

	It("treats medium and low gaps as warnings only", func() {
		result := validate.IsComplete(gaps[2:], false)

		Expect(result.Complete).To(BeTrue())
		Expect(result.Warnings).To(HaveLen(2))
	})

	It("demotes every gap to a warning with allowIncomplete", func() {
		result := validate.IsComplete(gaps, true)

		Expect(result.Complete).To(BeTrue())
		Expect(result.BlockingGaps).To(BeEmpty())
		Expect(result.Warnings).To(HaveLen(4))
	})
})
