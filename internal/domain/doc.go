// Package domain models the regional house price index and the computations
// the dashboard is built on.
//
// # Data Source
//
// Index values come from the Korean R-ONE real-estate statistics API
// (https://www.reb.or.kr/r-one/), endpoint SttsApiTblData.do. One request
// returns one scalar (DTA_VAL) for one region (CLS_ID) and one month
// (WRTTIME_IDTFR_ID, format YYYYMM, monthly cycle DTACYCLE_CD=MM). The
// statistic table and item identifiers (STATBL_ID, ITM_ID) select the house
// sales price index.
//
// # Region Identity
//
// Region codes map 1:1 to administrative names via a static CSV loaded at
// startup. The boundary GeoJSON carries the short form of each name
// (SIG_KOR_NM, e.g. "강남구") while the statistics table carries the long
// form ("서울특별시 강남구"), so the geometry join defaults to suffix
// matching. The join is not injective: a short name may match zero or many
// regions; the first match in input order wins and unmatched features
// render as "no data".
//
// # Change Computation
//
// For a requested (start, end) month pair, the observation nearest each
// target date is selected independently (ties keep the first encountered),
// then ChangePercent = round((end-start)/start*100, 2). A zero start value
// yields 0 by policy, masking the undefined-growth case.
//
// # Coloring
//
// Defined change values are normalized linearly over their observed min/max
// and mapped through a red-yellow-green diverging ramp. A degenerate range
// (all values equal) takes a single flat color via an explicit branch, and
// features without data take the neutral sentinel, never a ramp color.
package domain
