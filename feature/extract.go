package feature

import "math"

// Landmark index sets consulted by the extractor. Ordering is load-bearing:
// the model was trained on features emitted in exactly this order.
var (
	handPosHandIdx = [3]int{8, 9, 12}
	handPosFaceIdx = [5]int{234, 200, 214, 454, 280}
	handShapeTips  = [5]int{4, 8, 12, 16, 20}

	// lipOuter traces the outer lip contour, starting at the left mouth
	// corner and running clockwise.
	lipOuter = [20]int{
		61, 185, 40, 39, 37, 0, 267, 269, 270, 409,
		291, 375, 321, 405, 314, 17, 84, 181, 91, 146,
	}
)

// minSpan is the smallest usable normalization distance. A face width at or
// below this means the face detection collapsed; the frame is unusable.
const minSpan = 1e-6

// Extractor derives per-frame feature vectors from a stream of landmark
// sets. It keeps the two previous frames for velocity and acceleration
// features, so the first two frames of any stream are invalid. Not safe for
// concurrent use; one Extractor per stream.
type Extractor struct {
	prev  *LandmarkSet
	prev2 *LandmarkSet
}

// NewExtractor returns an Extractor with empty history.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// Reset clears the frame history for a new stream.
func (e *Extractor) Reset() {
	e.prev = nil
	e.prev2 = nil
}

// Push consumes the next frame's landmark set (nil when the detector
// produced nothing) and returns the extracted features, or nil when the
// frame is invalid. History advances either way, so a dropped detection also
// invalidates the two following frames' motion features only through its
// own absence.
func (e *Extractor) Push(set *LandmarkSet) *Frame {
	frame := Extract(set, e.prev, e.prev2)
	e.prev2 = e.prev
	e.prev = set
	return frame
}

// Extract computes the feature vector for curr given the two preceding
// landmark sets. Returns nil when any required landmark is missing or
// non-finite at any of the three frames, or when the face width degenerates.
func Extract(curr, prev, prev2 *LandmarkSet) *Frame {
	if curr == nil {
		return nil
	}

	// Normalization factors.
	f454, ok := curr.face(454)
	if !ok {
		return nil
	}
	f234, ok := curr.face(234)
	if !ok {
		return nil
	}
	faceWidth := distance(f454, f234)
	if faceWidth <= minSpan {
		return nil
	}

	handSpan := faceWidth
	if h0, ok0 := curr.hand(0); ok0 {
		if h9, ok9 := curr.hand(9); ok9 {
			if d := distance(h0, h9); d > minSpan {
				handSpan = d
			}
		}
	}

	// Hand position: distances from fingertips/knuckles to face anchors,
	// plus the orientation angle toward the chin (face 200).
	handPosition := make([]float64, 0, HandPositionDim)
	for _, hi := range handPosHandIdx {
		h, ok := curr.hand(hi)
		if !ok {
			return nil
		}
		for _, fi := range handPosFaceIdx {
			f, ok := curr.face(fi)
			if !ok {
				return nil
			}
			handPosition = append(handPosition, distance(h, f)/faceWidth)
			if fi == 200 {
				dx := (f.X - h.X) / faceWidth
				dy := (f.Y - h.Y) / faceWidth
				handPosition = append(handPosition, math.Atan2(dy, dx))
			}
		}
	}
	if len(handPosition) != HandPositionDim {
		return nil
	}

	// Hand shape: wrist-to-fingertip spreads.
	handShape := make([]float64, 0, HandShapeDim)
	wrist, ok := curr.hand(0)
	if !ok {
		return nil
	}
	for _, tip := range handShapeTips {
		h, ok := curr.hand(tip)
		if !ok {
			return nil
		}
		handShape = append(handShape, distance(wrist, h)/handSpan)
	}

	// Lip geometry.
	lips := make([]float64, 0, LipsDim)
	f61, ok := curr.face(61)
	if !ok {
		return nil
	}
	f291, ok := curr.face(291)
	if !ok {
		return nil
	}
	lips = append(lips, distance(f61, f291)/faceWidth)

	f0, ok := curr.face(0)
	if !ok {
		return nil
	}
	f17, ok := curr.face(17)
	if !ok {
		return nil
	}
	lips = append(lips, distance(f0, f17)/faceWidth)

	contour := make([]Landmark, 0, len(lipOuter))
	for _, idx := range lipOuter {
		lm, ok := curr.face(idx)
		if !ok {
			return nil
		}
		contour = append(contour, lm)
	}
	lips = append(lips, polygonArea(contour)/(faceWidth*faceWidth))
	lips = append(lips, meanContourCurvature(contour))

	// Motion features need two frames of history.
	if prev == nil || prev2 == nil {
		return nil
	}
	p0, ok := prev.face(0)
	if !ok {
		return nil
	}
	p20, ok := prev2.face(0)
	if !ok {
		return nil
	}

	velX := (f0.X - p0.X) / faceWidth
	velY := (f0.Y - p0.Y) / faceWidth
	lips = append(lips, velX, velY)

	prevVelX := (p0.X - p20.X) / faceWidth
	prevVelY := (p0.Y - p20.Y) / faceWidth
	lips = append(lips, velX-prevVelX, velY-prevVelY)

	// Index fingertip velocity closes out the hand-shape stream.
	h8, ok := curr.hand(8)
	if !ok {
		return nil
	}
	p8, ok := prev.hand(8)
	if !ok {
		return nil
	}
	handShape = append(handShape, (h8.X-p8.X)/handSpan, (h8.Y-p8.Y)/handSpan)

	frame := &Frame{
		HandShape:    handShape,
		HandPosition: handPosition,
		Lips:         lips,
	}
	if !frame.Valid() {
		return nil
	}
	return frame
}
