package utils

import "image/color"

//BatchLength is the number of frames the detector hands over to the counting loop at once
const BatchLength = 16

//LineThickness is the thickness of the zone lines plotted on each frame
const LineThickness = 2

//BoxThickness is the thickness of the vehicle bounding boxes plotted on each frame
const BoxThickness = 2

//IncomingLineColor and OutgoingLineColor are the colors of the two counting lines
var IncomingLineColor = color.RGBA{255, 0, 0, 0}
var OutgoingLineColor = color.RGBA{0, 255, 255, 0}

//TextColor is used for the counts overlay
var TextColor = color.RGBA{255, 255, 255, 0}

//DefaultBoxColor is used for a class without a dedicated color
var DefaultBoxColor = color.RGBA{200, 200, 200, 0}
