// Package edits extracts precision edit blocks from an AI response and
// applies them to files in a sandbox.
//
// An edit block looks like:
//
//	<edit target_file="src/components/Header.jsx">
//	<instructions>Make the title blue</instructions>
//	<update>
//	// ... existing code ...
//	<h1 className="text-blue-500">Title</h1>
//	// ... existing code ...
//	</update>
//	</edit>
//
// Two appliers exist. FastApplier asks an OpenAI-compatible fast-apply
// model to merge the snippet. MergeApplier merges locally by anchoring the
// snippet segments between marker lines in the original file.
package edits
