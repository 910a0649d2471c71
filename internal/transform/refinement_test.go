package transform_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"stitchflow.app/conductor/internal/model"
	"stitchflow.app/conductor/internal/transform"
)

func ptr[T any](v T) *T { return &v }

func testPlay(id, title string, sequence int) model.Play {
	return model.Play{
		ID:           id,
		PlaybookID:   "pb-1",
		Sequence:     sequence,
		Title:        title,
		Trigger:      model.NewTriggerCondition(model.OrderAcceptedTrigger{}),
		TaskTemplate: model.TaskTemplate{Title: title, Priority: model.TaskPriorityMedium},
		Assignment: model.NewPlayAssignment(model.RoleTeamAssignment{
			Mode: model.AssignmentModeTeam, TeamID: "team-1", TeamName: "Receiving",
		}),
		Enabled: true,
	}
}

func sequences(plays []model.Play) []int {
	out := make([]int, len(plays))
	for i, p := range plays {
		out[i] = p.Sequence
	}
	return out
}

var _ = Describe("RefinementTransformer", func() {
	var (
		transformer *transform.RefinementTransformer
		pb          model.Playbook
	)

	BeforeEach(func() {
		transformer = transform.NewRefinementTransformer(transform.NewResponseTransformer())
		pb = model.Playbook{
			ID:   "pb-1",
			Name: "Fabric intake",
			Plays: []model.Play{
				testPlay("p1", "Order fabric", 1),
				testPlay("p2", "Inspect fabric", 2),
				testPlay("p3", "Cut fabric", 3),
			},
		}
	})

	It("does not mutate the input playbook", func() {
		_ = transformer.Apply(pb, []transform.Operation{
			{Action: transform.OpRemove, Target: "p2"},
		}, "user-1")

		Expect(pb.Plays).To(HaveLen(3))
		Expect(pb.Plays[1].Title).To(Equal("Inspect fabric"))
	})

	Describe("add", func() {
		It("appends at the end when no sequence is given", func() {
			two := model.Playbook{ID: "pb-1", Plays: []model.Play{
				testPlay("p1", "Order fabric", 1),
				testPlay("p2", "Cut fabric", 2),
			}}

			result := transformer.Apply(two, []transform.Operation{{
				Action: transform.OpAdd,
				NewPlay: &transform.RawPlay{
					Title:      "Inspect fabric",
					Trigger:    transform.RawTrigger{Type: "order_accepted"},
					Assignment: transform.RawAssignment{Type: "role_team"},
				},
			}}, "user-1")

			Expect(result.Skipped).To(BeEmpty())
			Expect(result.Playbook.Plays).To(HaveLen(3))
			added := result.Playbook.Plays[2]
			Expect(added.Title).To(Equal("Inspect fabric"))
			Expect(added.Sequence).To(Equal(3))
		})

		It("inserts at an explicit sequence, bumping later plays", func() {
			result := transformer.Apply(pb, []transform.Operation{{
				Action:   transform.OpAdd,
				Sequence: ptr(2),
				NewPlay: &transform.RawPlay{
					Title:      "Check invoice",
					Trigger:    transform.RawTrigger{Type: "order_accepted"},
					Assignment: transform.RawAssignment{Type: "role_team"},
				},
			}}, "user-1")

			plays := result.Playbook.Plays
			Expect(plays).To(HaveLen(4))
			Expect(plays[0].Title).To(Equal("Order fabric"))
			Expect(plays[1].Title).To(Equal("Check invoice"))
			Expect(plays[2].Title).To(Equal("Inspect fabric"))
			Expect(plays[3].Title).To(Equal("Cut fabric"))
			Expect(sequences(plays)).To(Equal([]int{1, 2, 3, 4}))
		})

		It("resolves the new play's dependencies against existing plays", func() {
			result := transformer.Apply(pb, []transform.Operation{{
				Action: transform.OpAdd,
				NewPlay: &transform.RawPlay{
					Title:        "Press fabric",
					Trigger:      transform.RawTrigger{Type: "order_accepted"},
					Assignment:   transform.RawAssignment{Type: "role_team"},
					Dependencies: []transform.RawDependency{{PlayTitle: "cut fabric"}},
				},
			}}, "user-1")

			added := result.Playbook.Plays[3]
			Expect(added.Dependencies[0].PlayID).To(Equal("p3"))
		})
	})

	Describe("edit", func() {
		It("moves a play to an earlier sequence, shifting the others", func() {
			// Moving play 3 to slot 1 rotates the other two down.
			result := transformer.Apply(pb, []transform.Operation{{
				Action: transform.OpEdit,
				Target: "p3",
				Patch:  &transform.PlayPatch{Sequence: ptr(1)},
			}}, "user-1")

			plays := result.Playbook.Plays
			Expect(plays[0].Title).To(Equal("Cut fabric"))
			Expect(plays[1].Title).To(Equal("Order fabric"))
			Expect(plays[2].Title).To(Equal("Inspect fabric"))
			Expect(sequences(plays)).To(Equal([]int{1, 2, 3}))
		})

		It("finds the target by case-insensitive title", func() {
			result := transformer.Apply(pb, []transform.Operation{{
				Action: transform.OpEdit,
				Target: "inspect FABRIC",
				Patch:  &transform.PlayPatch{Description: ptr("Check for defects")},
			}}, "user-1")

			Expect(result.Skipped).To(BeEmpty())
			Expect(result.Playbook.Plays[1].Description).To(Equal("Check for defects"))
		})

		It("finds the target by substring match", func() {
			result := transformer.Apply(pb, []transform.Operation{{
				Action: transform.OpEdit,
				Target: "inspect",
				Patch:  &transform.PlayPatch{Enabled: ptr(false)},
			}}, "user-1")

			Expect(result.Skipped).To(BeEmpty())
			Expect(result.Playbook.Plays[1].Enabled).To(BeFalse())
		})

		It("merges a same-variant trigger patch field-by-field", func() {
			pb.Plays[1].Trigger = model.NewTriggerCondition(model.WorkflowStageChangeTrigger{
				WorkflowID:   "wf-1",
				WorkflowName: "Production",
				StageName:    "Inspection",
				Condition:    model.StageConditionEnters,
			})

			result := transformer.Apply(pb, []transform.Operation{{
				Action: transform.OpEdit,
				Target: "p2",
				Patch: &transform.PlayPatch{
					Trigger: &transform.RawTrigger{Type: "workflow_stage_change", StageID: "st-9"},
				},
			}}, "user-1")

			trigger, ok := result.Playbook.Plays[1].Trigger.Trigger.(model.WorkflowStageChangeTrigger)
			Expect(ok).To(BeTrue())
			Expect(trigger.StageID).To(Equal("st-9"))
			// Untouched fields survive the merge.
			Expect(trigger.WorkflowID).To(Equal("wf-1"))
			Expect(trigger.WorkflowName).To(Equal("Production"))
		})

		It("replaces the trigger wholesale on a cross-variant patch", func() {
			result := transformer.Apply(pb, []transform.Operation{{
				Action: transform.OpEdit,
				Target: "p2",
				Patch: &transform.PlayPatch{
					Trigger: &transform.RawTrigger{
						Type:          "capacity_based",
						TeamName:      "Receiving",
						ThresholdType: "above",
					},
				},
			}}, "user-1")

			trigger, ok := result.Playbook.Plays[1].Trigger.Trigger.(model.CapacityBasedTrigger)
			Expect(ok).To(BeTrue())
			Expect(trigger.TeamName).To(Equal("Receiving"))
		})

		It("re-resolves replaced dependencies against the playbook", func() {
			result := transformer.Apply(pb, []transform.Operation{{
				Action: transform.OpEdit,
				Target: "p3",
				Patch: &transform.PlayPatch{
					Dependencies: ptr([]transform.RawDependency{{PlayTitle: "Order fabric"}}),
				},
			}}, "user-1")

			deps := result.Playbook.Plays[2].Dependencies
			Expect(deps).To(HaveLen(1))
			Expect(deps[0].PlayID).To(Equal("p1"))
		})

		It("skips the operation with available titles when the target is missing", func() {
			result := transformer.Apply(pb, []transform.Operation{{
				Action: transform.OpEdit,
				Target: "Press seams",
				Patch:  &transform.PlayPatch{Title: ptr("whatever")},
			}}, "user-1")

			Expect(result.Applied).To(BeEmpty())
			Expect(result.Skipped).To(HaveLen(1))
			Expect(result.Skipped[0].Error).To(ContainSubstring("Order fabric"))
			Expect(result.Skipped[0].Error).To(ContainSubstring("Inspect fabric"))
			Expect(result.Skipped[0].Error).To(ContainSubstring("Cut fabric"))
		})
	})

	Describe("remove", func() {
		It("deletes the play and prunes dependencies pointing at it", func() {
			pb.Plays[1].Dependencies = []model.PlayDependency{
				{PlayID: "p1", PlayTitle: "Order fabric", Type: model.DependencyCompletion},
			}
			pb.Plays[2].Dependencies = []model.PlayDependency{
				{PlayID: "p1", PlayTitle: "Order fabric", Type: model.DependencyCompletion},
				{PlayID: "p2", PlayTitle: "Inspect fabric", Type: model.DependencyCompletion},
			}

			result := transformer.Apply(pb, []transform.Operation{{
				Action: transform.OpRemove,
				Target: "Order fabric",
			}}, "user-1")

			plays := result.Playbook.Plays
			Expect(plays).To(HaveLen(2))
			for _, play := range plays {
				for _, dep := range play.Dependencies {
					Expect(dep.PlayID).NotTo(Equal("p1"))
				}
			}
			// Unrelated dependencies survive.
			Expect(plays[1].Dependencies).To(HaveLen(1))
			Expect(plays[1].Dependencies[0].PlayID).To(Equal("p2"))
			Expect(sequences(plays)).To(Equal([]int{1, 2}))
		})

		It("skips when the target does not exist", func() {
			result := transformer.Apply(pb, []transform.Operation{{
				Action: transform.OpRemove,
				Target: "Press seams",
			}}, "user-1")

			Expect(result.Skipped).To(HaveLen(1))
			Expect(result.Playbook.Plays).To(HaveLen(3))
		})
	})

	Describe("batch semantics", func() {
		It("applies operations in order, later ones seeing earlier effects", func() {
			result := transformer.Apply(pb, []transform.Operation{
				{
					Action: transform.OpAdd,
					NewPlay: &transform.RawPlay{
						Title:      "Press seams",
						Trigger:    transform.RawTrigger{Type: "order_accepted"},
						Assignment: transform.RawAssignment{Type: "role_team"},
					},
				},
				{
					Action: transform.OpEdit,
					Target: "Press seams",
					Patch:  &transform.PlayPatch{Description: ptr("Use the steam press")},
				},
			}, "user-1")

			Expect(result.Applied).To(HaveLen(2))
			Expect(result.Playbook.Plays[3].Description).To(Equal("Use the steam press"))
		})

		It("continues past a failing operation", func() {
			result := transformer.Apply(pb, []transform.Operation{
				{Action: transform.OpRemove, Target: "No such play"},
				{Action: transform.OpRemove, Target: "p3"},
			}, "user-1")

			Expect(result.Skipped).To(HaveLen(1))
			Expect(result.Applied).To(HaveLen(1))
			Expect(result.Playbook.Plays).To(HaveLen(2))
			Expect(result.Changes).To(HaveLen(2))
		})

		It("restores the 1..N sequence invariant after arbitrary batches", func() {
			result := transformer.Apply(pb, []transform.Operation{
				{Action: transform.OpRemove, Target: "p2"},
				{
					Action:   transform.OpAdd,
					Sequence: ptr(1),
					NewPlay: &transform.RawPlay{
						Title:      "Receive shipment",
						Trigger:    transform.RawTrigger{Type: "order_accepted"},
						Assignment: transform.RawAssignment{Type: "role_team"},
					},
				},
				{Action: transform.OpEdit, Target: "Cut fabric", Patch: &transform.PlayPatch{Sequence: ptr(2)}},
			}, "user-1")

			Expect(sequences(result.Playbook.Plays)).To(Equal([]int{1, 2, 3}))
		})
	})
})
