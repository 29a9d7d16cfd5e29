package scanning

import (
	"context"

	"github.com/google/generative-ai-go/genai"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("NewGemini", func() {
	It("requires an API key", func() {
		_, err := NewGemini(context.Background(), "", "")
		Expect(err).To(MatchError(ContainSubstring("api key is required")))
	})
})

var _ = Describe("answerText", func() {
	It("should join the text parts of the first candidate", func() {
		text, err := answerText(&genai.GenerateContentResponse{
			Candidates: []*genai.Candidate{{
				Content: &genai.Content{Parts: []genai.Part{genai.Text(`{"name":`), genai.Text(` "SNCF"}`)}},
			}},
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(text).To(Equal(`{"name": "SNCF"}`))
	})

	It("should skip parts that are not text", func() {
		text, err := answerText(&genai.GenerateContentResponse{
			Candidates: []*genai.Candidate{{
				Content: &genai.Content{Parts: []genai.Part{genai.ImageData("png", []byte{1}), genai.Text("{}")}},
			}},
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(text).To(Equal("{}"))
	})

	DescribeTable("empty answers",
		func(resp *genai.GenerateContentResponse) {
			_, err := answerText(resp)
			Expect(err).To(MatchError(errEmptyAnswer))
		},
		Entry("nil response", nil),
		Entry("no candidates", &genai.GenerateContentResponse{}),
		Entry("no content", &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{}}}),
		Entry("no text", &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{Content: &genai.Content{}}}}),
	)
})
