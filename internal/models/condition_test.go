package models_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sensor-platform/alert-engine/internal/models"
)

var _ = Describe("ConditionNode", func() {
	Describe("ParseConditionTree", func() {
		It("should parse a simple comparison node", func() {
			node, err := models.ParseConditionTree([]byte(`{"op": ">", "value": 70}`))

			Expect(err).NotTo(HaveOccurred())
			Expect(node).NotTo(BeNil())
			Expect(node.Op).To(Equal(models.OpGreaterThan))
			Expect(*node.Value).To(Equal(70.0))
		})

		It("should parse a range node", func() {
			node, err := models.ParseConditionTree([]byte(`{"min": 18, "max": 26}`))

			Expect(err).NotTo(HaveOccurred())
			Expect(*node.Min).To(Equal(18.0))
			Expect(*node.Max).To(Equal(26.0))
		})

		It("should parse a nested boolean tree", func() {
			raw := []byte(`{"or": [{"and": [{"op": ">", "value": 18}, {"op": "<", "value": 26}]}, {"op": "==", "value": 0}]}`)

			node, err := models.ParseConditionTree(raw)

			Expect(err).NotTo(HaveOccurred())
			Expect(node.Or).To(HaveLen(2))
			Expect(node.Or[0].And).To(HaveLen(2))
		})

		It("should reject an empty document", func() {
			_, err := models.ParseConditionTree(nil)
			Expect(err).To(HaveOccurred())
		})

		It("should reject malformed json", func() {
			_, err := models.ParseConditionTree([]byte(`{"op": ">"`))
			Expect(err).To(HaveOccurred())
		})

		It("should reject an unknown operator", func() {
			_, err := models.ParseConditionTree([]byte(`{"op": "~", "value": 5}`))
			Expect(err).To(MatchError(ContainSubstring("unknown comparison operator")))
		})

		It("should reject a comparison without a value", func() {
			_, err := models.ParseConditionTree([]byte(`{"op": ">"}`))
			Expect(err).To(HaveOccurred())
		})

		It("should reject a node mixing variants", func() {
			_, err := models.ParseConditionTree([]byte(`{"op": ">", "value": 5, "min": 1, "max": 2}`))
			Expect(err).To(MatchError(ContainSubstring("exactly one")))
		})

		It("should reject a range with min above max", func() {
			_, err := models.ParseConditionTree([]byte(`{"min": 30, "max": 10}`))
			Expect(err).To(MatchError(ContainSubstring("exceeds max")))
		})

		It("should reject an empty and list", func() {
			_, err := models.ParseConditionTree([]byte(`{"and": []}`))
			Expect(err).To(MatchError(ContainSubstring("at least one child")))
		})

		It("should reject an invalid node nested deep in the tree", func() {
			raw := []byte(`{"and": [{"op": ">", "value": 1}, {"or": [{"op": "bad", "value": 2}]}]}`)

			_, err := models.ParseConditionTree(raw)
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("Matches", func() {
		parse := func(raw string) *models.ConditionNode {
			node, err := models.ParseConditionTree([]byte(raw))
			Expect(err).NotTo(HaveOccurred())
			return node
		}

		It("should evaluate comparison operators against a value", func() {
			Expect(parse(`{"op": ">", "value": 10}`).Matches(10.1)).To(BeTrue())
			Expect(parse(`{"op": ">", "value": 10}`).Matches(10)).To(BeFalse())
			Expect(parse(`{"op": "<", "value": 10}`).Matches(9.9)).To(BeTrue())
			Expect(parse(`{"op": ">=", "value": 10}`).Matches(10)).To(BeTrue())
			Expect(parse(`{"op": "<=", "value": 10}`).Matches(10)).To(BeTrue())
			Expect(parse(`{"op": "==", "value": 1}`).Matches(1)).To(BeTrue())
			Expect(parse(`{"op": "!=", "value": 1}`).Matches(0)).To(BeTrue())
		})

		It("should treat range bounds as inclusive", func() {
			node := parse(`{"min": 18, "max": 26}`)

			Expect(node.Matches(18)).To(BeTrue())
			Expect(node.Matches(26)).To(BeTrue())
			Expect(node.Matches(17.99)).To(BeFalse())
			Expect(node.Matches(26.01)).To(BeFalse())
		})

		It("should require all children of an and node to match", func() {
			node := parse(`{"and": [{"op": ">", "value": 18}, {"op": "<", "value": 26}]}`)

			Expect(node.Matches(22)).To(BeTrue())
			Expect(node.Matches(18)).To(BeFalse())
			Expect(node.Matches(30)).To(BeFalse())
		})

		It("should require any child of an or node to match", func() {
			node := parse(`{"or": [{"op": "<", "value": 0}, {"op": ">", "value": 100}]}`)

			Expect(node.Matches(-5)).To(BeTrue())
			Expect(node.Matches(150)).To(BeTrue())
			Expect(node.Matches(50)).To(BeFalse())
		})

		It("should evaluate a nested tree", func() {
			node := parse(`{"or": [{"and": [{"op": ">", "value": 60}, {"op": "<", "value": 80}]}, {"min": 0, "max": 10}]}`)

			Expect(node.Matches(70)).To(BeTrue())
			Expect(node.Matches(5)).To(BeTrue())
			Expect(node.Matches(90)).To(BeFalse())
		})
	})
})
